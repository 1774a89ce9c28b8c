package discovery

import (
	"github.com/aga-project/aga/pkg/engine"
	"github.com/aga-project/aga/pkg/log"
	"github.com/aga-project/aga/pkg/metrics"
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/smi"
	"github.com/aga-project/aga/pkg/store"
	"github.com/aga-project/aga/pkg/types"
)

// Deps are the collaborators discovery needs.
type Deps struct {
	Adapter smi.Adapter
	Store   *store.GPUStore
	Engine  *engine.Engine
}

// Run executes the two-pass discovery algorithm against an empty store
// (spec §4.3). Per-GPU create failures are logged and skipped;
// discovery continues with the remaining devices.
func Run(d Deps) error {
	devices, err := d.Adapter.Discover()
	if err != nil {
		metrics.DiscoveryErrorsTotal.Inc()
		return err
	}

	counts := make(map[objkey.Key]int, len(devices))
	for _, dev := range devices {
		counts[dev.Key]++
	}

	// First pass: one parent per duplicated key.
	parentCreated := make(map[objkey.Key]bool)
	for _, dev := range devices {
		if counts[dev.Key] <= 1 {
			continue
		}
		if parentCreated[dev.Key] {
			continue
		}
		resp := d.Engine.Submit(engine.Request{
			Kind: types.KindGPU, Op: types.OpCreate, Key: dev.Key,
			Params: types.GPUCreateParams{ParentKey: objkey.Invalid},
		})
		if resp.Err != nil {
			log.Logger.Error().Str("key", dev.Key.String()).Str("err", resp.Err.Error()).Msg("discovery: parent create failed")
			metrics.DiscoveryErrorsTotal.Inc()
			continue
		}
		parentCreated[dev.Key] = true
	}

	// Second pass: every (handle, key) in discovery order.
	for hwid, dev := range devices {
		partitioned := counts[dev.Key] > 1

		var childKey, parentKey objkey.Key
		var partitionID uint32 = types.InvalidPartitionID

		if partitioned {
			pid, err := d.Adapter.GetPartitionID(dev.Handle)
			if err != nil {
				log.Logger.Error().Str("key", dev.Key.String()).Err(err).Msg("discovery: partition id read failed")
				metrics.DiscoveryErrorsTotal.Inc()
				continue
			}
			partitionID = pid
			childKey = dev.Key.WithPartition(pid)
			parentKey = dev.Key
		} else {
			childKey = dev.Key
			parentKey = objkey.Invalid
		}

		resp := d.Engine.Submit(engine.Request{
			Kind: types.KindGPU, Op: types.OpCreate, Key: childKey,
			Params: types.GPUCreateParams{ParentKey: parentKey},
		})
		if resp.Err != nil {
			log.Logger.Error().Str("key", childKey.String()).Str("err", resp.Err.Error()).Msg("discovery: gpu create failed")
			metrics.DiscoveryErrorsTotal.Inc()
			continue
		}

		g := d.Store.FindByKey(childKey)
		if g == nil {
			continue
		}
		g.HWID = uint32(hwid)
		g.Handle = dev.Handle
		g.PartitionID = partitionID
		d.Store.IndexHandle(g)

		if spec, err := d.Adapter.FillSpec(dev.Handle); err == nil {
			g.Spec = spec
		} else {
			log.Logger.Error().Str("key", childKey.String()).Err(err).Msg("discovery: fill_spec failed")
			metrics.DiscoveryErrorsTotal.Inc()
		}
		if imm, err := d.Adapter.FillImmutableStatus(dev.Handle); err == nil {
			g.Immutable = imm
		}

		if partitioned {
			if parent := d.Store.FindByKey(parentKey); parent != nil {
				parent.ChildKeys = append(parent.ChildKeys, childKey)
				parent.Spec.ComputePartitionType = g.Spec.ComputePartitionType
			}
		}
	}

	metrics.DiscoveredGPUsTotal.Set(float64(d.Store.Len()))
	return nil
}
