package gpu

import "github.com/aga-project/aga/pkg/types"

// computeChangeMask compares incoming against cached field-by-field and
// returns the bitmask of attributes that changed, validating each
// changed field against the constraints in spec §4.4. The first
// validation failure aborts with its *types.Error; the mask up to that
// point is discarded.
func computeChangeMask(cached, incoming types.GPUSpec) (types.UpdateMask, *types.Error) {
	var mask types.UpdateMask

	if incoming.AdminState != cached.AdminState {
		if incoming.AdminState != types.AdminStateUp && incoming.AdminState != types.AdminStateDown {
			return 0, types.NewError(types.InvalidArg, "admin state must be up or down")
		}
		mask |= types.UpdAdminState
	}

	if incoming.OverdriveLevel != cached.OverdriveLevel {
		if incoming.OverdriveLevel > types.MaxOverdriveLevel {
			return 0, types.NewCodedError(types.InvalidArg, types.CodeOverdriveOutOfRange,
				"overdrive level must be in [0, 20]")
		}
		mask |= types.UpdOverdriveLevel
	}

	if incoming.PowerCap != cached.PowerCap {
		// Range validity is the adapter's responsibility ("after driver
		// range check", spec §4.4); 0 means "reset to default" and is
		// always accepted here.
		mask |= types.UpdPowerCap
	}

	if incoming.PerfLevel != cached.PerfLevel {
		if incoming.PerfLevel < types.PerfLevelAuto || incoming.PerfLevel > types.PerfLevelManual {
			return 0, types.NewError(types.InvalidArg, "unrecognized performance level")
		}
		mask |= types.UpdPerfLevel
	}

	if clockRangesChanged(cached.ClockFreqRanges, incoming.ClockFreqRanges) {
		if err := validateClockFreqRanges(incoming.ClockFreqRanges); err != nil {
			return 0, err
		}
		mask |= types.UpdClockFreqRange
	}

	if incoming.FanSpeed != cached.FanSpeed {
		mask |= types.UpdFanSpeed
	}

	if !bytesEqual(cached.RASPolicy, incoming.RASPolicy) {
		mask |= types.UpdRASPolicy
	}

	if incoming.MemoryPartitionType != cached.MemoryPartitionType {
		if incoming.MemoryPartitionType < types.MemoryPartitionNPS1 || incoming.MemoryPartitionType > types.MemoryPartitionNPS8 {
			return 0, types.NewError(types.InvalidArg, "unrecognized memory partition type")
		}
		mask |= types.UpdMemoryPartitionType
	}

	if incoming.ComputePartitionType != cached.ComputePartitionType {
		if incoming.ComputePartitionType < types.ComputePartitionSPX || incoming.ComputePartitionType > types.ComputePartitionCPX {
			return 0, types.NewError(types.InvalidArg, "unrecognized compute partition type")
		}
		mask |= types.UpdComputePartitionType
	}

	return mask, nil
}

func validateClockFreqRanges(ranges []types.ClockFreqRange) *types.Error {
	if len(ranges) > types.MaxClockFreqRanges {
		return types.NewCodedError(types.InvalidArg, types.CodeNumClockFreqRangeExceeded,
			"at most 4 clock-frequency-range entries are allowed")
	}
	seen := make(map[types.ClockType]bool, len(ranges))
	for _, r := range ranges {
		if r.Type != types.ClockTypeSystem && r.Type != types.ClockTypeMemory &&
			r.Type != types.ClockTypeVideo && r.Type != types.ClockTypeData {
			return types.NewCodedError(types.InvalidArg, types.CodeClockTypeFreqRangeUpdateNotSupported,
				"unsupported clock type")
		}
		if seen[r.Type] {
			return types.NewCodedError(types.InvalidArg, types.CodeDuplicateClockFreqRange,
				"duplicate clock type in update")
		}
		seen[r.Type] = true
		if r.Lo > r.Hi {
			return types.NewCodedError(types.InvalidArg, types.CodeClockFreqRangeInvalid,
				"clock frequency range lo must be <= hi")
		}
	}
	return nil
}

func clockRangesChanged(a, b []types.ClockFreqRange) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i] != b[i] {
			return true
		}
	}
	return false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// applyUpdate computes the change mask, validates it, forwards the
// whole spec plus mask to the adapter in one call, and — only on
// success — overwrites the masked fields of the cached spec. Update is
// atomic: a failed adapter call leaves the cached spec untouched (spec
// §8 boundary property).
func applyUpdate(d Deps, g *types.GPU, incoming types.GPUSpec) *types.Error {
	mask, verr := computeChangeMask(g.Spec, incoming)
	if verr != nil {
		return verr
	}
	if mask == 0 {
		return nil
	}
	if err := d.Adapter.Update(g.Handle, incoming, mask); err != nil {
		return err
	}
	applyMask(&g.Spec, incoming, mask)
	return nil
}

func applyMask(cached *types.GPUSpec, incoming types.GPUSpec, mask types.UpdateMask) {
	if mask&types.UpdAdminState != 0 {
		cached.AdminState = incoming.AdminState
	}
	if mask&types.UpdOverdriveLevel != 0 {
		cached.OverdriveLevel = incoming.OverdriveLevel
		// Adapter contract: changing overdrive forces manual perf
		// level if it was not already (spec §4.4).
		if cached.PerfLevel != types.PerfLevelManual {
			cached.PerfLevel = types.PerfLevelManual
		}
	}
	if mask&types.UpdPowerCap != 0 {
		cached.PowerCap = incoming.PowerCap
	}
	if mask&types.UpdPerfLevel != 0 {
		cached.PerfLevel = incoming.PerfLevel
	}
	if mask&types.UpdClockFreqRange != 0 {
		cached.ClockFreqRanges = append([]types.ClockFreqRange(nil), incoming.ClockFreqRanges...)
	}
	if mask&types.UpdFanSpeed != 0 {
		cached.FanSpeed = incoming.FanSpeed
	}
	if mask&types.UpdRASPolicy != 0 {
		cached.RASPolicy = append([]byte(nil), incoming.RASPolicy...)
	}
	if mask&types.UpdMemoryPartitionType != 0 {
		cached.MemoryPartitionType = incoming.MemoryPartitionType
	}
	if mask&types.UpdComputePartitionType != 0 {
		cached.ComputePartitionType = incoming.ComputePartitionType
	}
}
