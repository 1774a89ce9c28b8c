package watcher

import (
	"github.com/aga-project/aga/pkg/smi"
	"github.com/aga-project/aga/pkg/types"
)

// xgmiDataOutCounters enumerates the 6 per-neighbor data-out counters,
// in neighbor-index order (spec §4.5 step 3).
var xgmiDataOutCounters = [6]smi.CounterType{
	smi.CounterXGMIDataOut0, smi.CounterXGMIDataOut1, smi.CounterXGMIDataOut2,
	smi.CounterXGMIDataOut3, smi.CounterXGMIDataOut4, smi.CounterXGMIDataOut5,
}

// xgmiTxCounters are the two aggregate tx counters, folded into the
// first two neighbor slots' TxRequests field alongside the per-neighbor
// data-out throughput.
var xgmiTxCounters = [2]smi.CounterType{smi.CounterXGMITx0, smi.CounterXGMITx1}

// sampleGPU runs the per-GPU sampling procedure of spec §4.5: bulk
// snapshot first, then the fields it doesn't cover, each adapter call
// independently best-effort (a failure leaves that field zero).
func (w *Watcher) sampleGPU(handle types.Handle) types.WatchFields {
	var f types.WatchFields

	if bulk, err := w.Adapter.SampleBulk(handle); err == nil && bulk.OK {
		f.GPUClock = bulk.GPUClock
		f.MemClock = bulk.MemClock
		f.Temperature = bulk.Temperature
		f.PowerUsage = bulk.PowerUsage
		f.GPUUtilization = bulk.GPUUtilization
		f.MemUtilization = bulk.MemUtilization
	}

	if tx, rx, err := w.Adapter.SamplePCIeThroughput(handle); err == nil {
		f.PCIeTxThroughput = tx
		f.PCIeRxThroughput = rx
	}

	w.sampleXGMI(handle, &f)
	w.sampleECC(handle, &f)

	return f
}

func (w *Watcher) sampleXGMI(handle types.Handle, f *types.WatchFields) {
	for i, ct := range xgmiDataOutCounters {
		ch, ok := w.counterHandle(handle, ct)
		if !ok {
			continue
		}
		value, seconds, err := w.Adapter.ReadCounter(ch)
		if err != nil {
			continue
		}
		if seconds == 0 {
			seconds = 1
		}
		f.XGMI[i].TxThroughput = value * 32 / seconds
		f.XGMI[i].TxBeats = value
	}
	for i, ct := range xgmiTxCounters {
		ch, ok := w.counterHandle(handle, ct)
		if !ok {
			continue
		}
		value, _, err := w.Adapter.ReadCounter(ch)
		if err != nil {
			continue
		}
		f.XGMI[i].TxRequests = value
	}
}

func (w *Watcher) sampleECC(handle types.Handle, f *types.WatchFields) {
	var correctable, uncorrectable uint64
	for _, block := range smi.ECCBlocks {
		count, err := w.Adapter.SampleECC(handle, block)
		if err != nil {
			continue
		}
		correctable += count.Correctable
		uncorrectable += count.Uncorrectable
		applyECCBlock(&f.ECC, block, count)
	}
	f.TotalCorrectableErrors = correctable
	f.TotalUncorrectableErrors = uncorrectable
}

func applyECCBlock(ecc *types.ECCCounters, block smi.ECCBlock, count smi.ECCCount) {
	switch block {
	case smi.ECCBlockSDMA:
		ecc.SDMACorrectable, ecc.SDMAUncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockGFX:
		ecc.GFXCorrectable, ecc.GFXUncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockMMHUB:
		ecc.MMHUBCorrectable, ecc.MMHUBUncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockATHUB:
		ecc.ATHUBCorrectable, ecc.ATHUBUncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockBIF:
		ecc.BIFCorrectable, ecc.BIFUncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockHDP:
		ecc.HDPCorrectable, ecc.HDPUncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockXGMIWAFL:
		ecc.XGMIWAFLCorrectable, ecc.XGMIWAFLUncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockDF:
		ecc.DFCorrectable, ecc.DFUncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockSMN:
		ecc.SMNCorrectable, ecc.SMNUncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockSEM:
		ecc.SEMCorrectable, ecc.SEMUncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockMP0:
		ecc.MP0Correctable, ecc.MP0Uncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockMP1:
		ecc.MP1Correctable, ecc.MP1Uncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockFUSE:
		ecc.FUSECorrectable, ecc.FUSEUncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockUMC:
		ecc.UMCCorrectable, ecc.UMCUncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockMCA:
		ecc.MCACorrectable, ecc.MCAUncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockVCN:
		ecc.VCNCorrectable, ecc.VCNUncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockJPEG:
		ecc.JPEGCorrectable, ecc.JPEGUncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockIH:
		ecc.IHCorrectable, ecc.IHUncorrectable = count.Correctable, count.Uncorrectable
	case smi.ECCBlockMPIO:
		ecc.MPIOCorrectable, ecc.MPIOUncorrectable = count.Correctable, count.Uncorrectable
	}
}
