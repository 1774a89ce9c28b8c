/*
Package gpuwatch implements the GPU-watch entity logic (C5b): the
engine.Handlers wiring for types.KindGPUWatch and the subscriber
refcount it protects. Creation requires every referenced GPU to exist;
deletion is vetoed while subscribers remain attached.
*/
package gpuwatch
