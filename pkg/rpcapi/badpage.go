package rpcapi

import (
	"github.com/aga-project/aga/pkg/smi"
	"github.com/aga-project/aga/pkg/types"
	"google.golang.org/grpc"
)

// streamBadPageRecords streams records to stream under gpuKey's wire
// identity, in bundles of at most BadPagePageSize, ending with one
// empty Final message (spec §6).
func streamBadPageRecords(stream grpc.ServerStream, gpuKey string, records []smi.BadPageRecord) error {
	for len(records) > 0 {
		n := BadPagePageSize
		if n > len(records) {
			n = len(records)
		}
		batch := records[:n]
		records = records[n:]
		recs := make([]BadPageRecordDTO, len(batch))
		for i, r := range batch {
			recs[i] = badPageToDTO(r)
		}
		if err := stream.SendMsg(&GPUBadPageMessage{GPUKey: gpuKey, Records: recs}); err != nil {
			return err
		}
	}
	return stream.SendMsg(&GPUBadPageMessage{GPUKey: gpuKey, Final: true})
}

// GPUBadPageRead implements the GPUBadPage.Read server-streaming RPC
// for a single GPU.
func (s *Server) GPUBadPageRead(req *GPUBadPageReadRequest, stream grpc.ServerStream) error {
	key, err := parseKey(req.GPUKey)
	if err != nil {
		return badKeyErr(err)
	}
	g := s.deps.GPUStore.FindByKey(key)
	if g == nil {
		return statusFromErr(types.NewError(types.EntryNotFound, "gpu not found"))
	}
	g.Lock()
	handle := g.Handle
	g.Unlock()
	records, perr := s.deps.Adapter.BadPages(handle)
	if perr != nil {
		return statusFromErr(types.NewError(types.ERR, perr.Error()))
	}
	return streamBadPageRecords(stream, req.GPUKey, records)
}

// GPUBadPageReadAll implements the GPUBadPage.ReadAll server-streaming
// RPC across every GPU.
func (s *Server) GPUBadPageReadAll(req *GPUBadPageReadAllRequest, stream grpc.ServerStream) error {
	type target struct {
		key    string
		handle types.Handle
	}
	var targets []target
	s.deps.GPUStore.Walk(func(g *types.GPU) bool {
		g.Lock()
		key, handle := g.Key, g.Handle
		g.Unlock()
		targets = append(targets, target{keyString(key), handle})
		return false
	})
	for _, t := range targets {
		records, perr := s.deps.Adapter.BadPages(t.handle)
		if perr != nil {
			continue
		}
		if err := streamBadPageRecords(stream, t.key, records); err != nil {
			return err
		}
	}
	return nil
}

var badPageServiceDesc = grpc.ServiceDesc{
	ServiceName: "aga.GPUBadPage",
	HandlerType: (*Server)(nil),
	Streams: []grpc.StreamDesc{
		{StreamName: "Read", Handler: streamHandler[GPUBadPageReadRequest]((*Server).GPUBadPageRead), ServerStreams: true},
		{StreamName: "ReadAll", Handler: streamHandler[GPUBadPageReadAllRequest]((*Server).GPUBadPageReadAll), ServerStreams: true},
	},
	Metadata: "aga/badpage.proto",
}
