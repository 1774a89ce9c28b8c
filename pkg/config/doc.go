/*
Package config holds the agent's runtime configuration: the gRPC
listen port and the upstream RDC server host (spec §6). Values are
read from the environment first via github.com/ilyakaznacheev/cleanenv
(grounded on
aleksandr-podmoskovniy-gpu-control-plane/src/gfd-extender/cmd/gfd-extender/main_linux.go's
cleanenv.ReadEnv pattern), then overridden by any CLI flag the caller
explicitly set.
*/
package config
