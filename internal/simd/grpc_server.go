package simd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/sweep-core/pkg/logger"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// SweepServiceName is the fully qualified gRPC service name. Requests and
// responses are google.protobuf.Struct messages carrying the same JSON
// documents the HTTP surface serves.
const SweepServiceName = "sweep.v1.SweepService"

// SweepServiceServer is the server API for the sweep service.
type SweepServiceServer interface {
	CreateSweep(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartSweep(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StopSweep(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSweep(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSweeps(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetResults(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchSweep(*structpb.Struct, SweepWatchStream) error
}

// SweepWatchStream is the server side of a WatchSweep call.
type SweepWatchStream interface {
	Send(*structpb.Struct) error
	Context() context.Context
}

type sweepUnary func(SweepServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call sweepUnary) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SweepServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + SweepServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SweepServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

type sweepWatchServer struct {
	grpc.ServerStream
}

func (s *sweepWatchServer) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

// SweepServiceDesc describes the sweep service for grpc.Server.RegisterService.
var SweepServiceDesc = grpc.ServiceDesc{
	ServiceName: SweepServiceName,
	HandlerType: (*SweepServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateSweep", SweepServiceServer.CreateSweep),
		unary("StartSweep", SweepServiceServer.StartSweep),
		unary("StopSweep", SweepServiceServer.StopSweep),
		unary("GetSweep", SweepServiceServer.GetSweep),
		unary("ListSweeps", SweepServiceServer.ListSweeps),
		unary("GetResults", SweepServiceServer.GetResults),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchSweep",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(structpb.Struct)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(SweepServiceServer).WatchSweep(in, &sweepWatchServer{stream})
			},
		},
	},
}

// RegisterSweepServiceServer registers srv on s.
func RegisterSweepServiceServer(s grpc.ServiceRegistrar, srv SweepServiceServer) {
	s.RegisterService(&SweepServiceDesc, srv)
}

// SweepServiceClient calls the sweep service over a client connection.
type SweepServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSweepServiceClient(cc grpc.ClientConnInterface) *SweepServiceClient {
	return &SweepServiceClient{cc: cc}
}

func (c *SweepServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+SweepServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SweepServiceClient) CreateSweep(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CreateSweep", in, opts...)
}

func (c *SweepServiceClient) StartSweep(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "StartSweep", in, opts...)
}

func (c *SweepServiceClient) StopSweep(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "StopSweep", in, opts...)
}

func (c *SweepServiceClient) GetSweep(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetSweep", in, opts...)
}

func (c *SweepServiceClient) ListSweeps(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListSweeps", in, opts...)
}

func (c *SweepServiceClient) GetResults(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetResults", in, opts...)
}

// SweepWatchClient receives WatchSweep events.
type SweepWatchClient interface {
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type sweepWatchClient struct {
	grpc.ClientStream
}

func (c *sweepWatchClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *SweepServiceClient) WatchSweep(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (SweepWatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &SweepServiceDesc.Streams[0], "/"+SweepServiceName+"/WatchSweep", opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &sweepWatchClient{stream}, nil
}

// SweepGRPCServer implements SweepServiceServer using a RunStore backend.
type SweepGRPCServer struct {
	store    *RunStore
	Executor *RunExecutor
	archive  ArchiveReader
	// watchInterval is the polling period of WatchSweep.
	watchInterval time.Duration
}

// NewSweepGRPCServer creates a new SweepGRPCServer with the provided RunStore and RunExecutor.
func NewSweepGRPCServer(store *RunStore, executor *RunExecutor) *SweepGRPCServer {
	return &SweepGRPCServer{
		store:         store,
		Executor:      executor,
		watchInterval: 500 * time.Millisecond,
	}
}

// SetArchive enables reads of archived runs.
func (s *SweepGRPCServer) SetArchive(a ArchiveReader) {
	s.archive = a
}

type runRequest struct {
	RunID string `json:"run_id"`
}

type listRequest struct {
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Status string `json:"status"`
}

type watchRequest struct {
	RunID      string `json:"run_id"`
	IntervalMs int    `json:"interval_ms"`
}

func (s *SweepGRPCServer) CreateSweep(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CreateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Definition) == "" {
		return nil, status.Error(codes.InvalidArgument, "definition is required")
	}

	rec, err := s.store.Create(req)
	if err != nil {
		return nil, grpcError(err)
	}

	logger.Info("sweep created", "run_id", rec.Run.ID, "steps", rec.Run.Steps)
	return toStruct(map[string]any{"run": newRunView(rec)})
}

func (s *SweepGRPCServer) StartSweep(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	runID, err := requireRunID(in)
	if err != nil {
		return nil, err
	}
	updated, err := s.Executor.Start(runID)
	if err != nil {
		return nil, grpcError(err)
	}

	logger.Info("sweep started (executor)", "run_id", runID)
	return toStruct(map[string]any{"run": newRunView(updated)})
}

func (s *SweepGRPCServer) StopSweep(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	runID, err := requireRunID(in)
	if err != nil {
		return nil, err
	}
	updated, err := s.Executor.Stop(runID)
	if err != nil {
		return nil, grpcError(err)
	}
	logger.Info("sweep cancelled", "run_id", runID)
	return toStruct(map[string]any{"run": newRunView(updated)})
}

func (s *SweepGRPCServer) GetSweep(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	runID, err := requireRunID(in)
	if err != nil {
		return nil, err
	}
	rec, ok := lookupRun(ctx, s.store, s.archive, runID)
	if !ok {
		return nil, status.Error(codes.NotFound, "run not found")
	}
	return toStruct(map[string]any{
		"run":      newRunView(rec),
		"outcomes": newOutcomeViews(rec.Outcomes),
		"metrics":  rec.Metrics,
	})
}

func (s *SweepGRPCServer) ListSweeps(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	limit := 50
	if req.Limit > 0 {
		limit = min(req.Limit, 1000)
	}
	recs := s.store.List(limit, max(req.Offset, 0), models.RunStatus(strings.ToLower(req.Status)))
	runs := make([]runView, 0, len(recs))
	for _, rec := range recs {
		runs = append(runs, newRunView(rec))
	}
	return toStruct(map[string]any{"runs": runs})
}

func (s *SweepGRPCServer) GetResults(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	runID, err := requireRunID(in)
	if err != nil {
		return nil, err
	}
	rec, ok := lookupRun(ctx, s.store, s.archive, runID)
	if !ok {
		return nil, status.Error(codes.NotFound, "run not found")
	}
	if rec.Minimized == nil {
		return nil, status.Error(codes.FailedPrecondition, "results not available")
	}
	return toStruct(map[string]any{
		"run_id":    runID,
		"results":   newResultViews(rec.Results),
		"minimized": newMinimizedView(rec.Minimized),
	})
}

// WatchSweep streams status changes and step progress until the run
// reaches a terminal status.
func (s *SweepGRPCServer) WatchSweep(in *structpb.Struct, stream SweepWatchStream) error {
	var req watchRequest
	if err := fromStruct(in, &req); err != nil {
		return err
	}
	if req.RunID == "" {
		return status.Error(codes.InvalidArgument, "run_id is required")
	}

	rec, ok := s.store.Get(req.RunID)
	if !ok {
		return status.Error(codes.NotFound, "run not found")
	}

	send := func(kind string, data map[string]any) error {
		data["event"] = kind
		data["run_id"] = req.RunID
		data["at_unix_ms"] = time.Now().UTC().UnixMilli()
		msg, err := toStruct(data)
		if err != nil {
			return err
		}
		return stream.Send(msg)
	}

	if err := send("status_changed", map[string]any{"previous": "", "current": rec.Run.Status}); err != nil {
		return err
	}
	previousStatus := rec.Run.Status
	seen := 0

	interval := s.watchInterval
	if req.IntervalMs > 0 {
		interval = time.Duration(req.IntervalMs) * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if rec.Run.Status.IsTerminal() {
			return send("summary", map[string]any{
				"status":  rec.Run.Status,
				"error":   rec.Run.Error,
				"metrics": rec.Metrics,
			})
		}

		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case <-ticker.C:
		}

		rec, ok = s.store.Get(req.RunID)
		if !ok {
			return status.Error(codes.NotFound, "run not found")
		}

		for ; seen < len(rec.Outcomes); seen++ {
			o := newOutcomeViews(rec.Outcomes[seen : seen+1])[0]
			if err := send("step", map[string]any{"outcome": o, "steps": rec.Run.Steps}); err != nil {
				return err
			}
		}
		if rec.Run.Status != previousStatus {
			if err := send("status_changed", map[string]any{"previous": previousStatus, "current": rec.Run.Status}); err != nil {
				return err
			}
			previousStatus = rec.Run.Status
		}
	}
}

func requireRunID(in *structpb.Struct) (string, error) {
	var req runRequest
	if err := fromStruct(in, &req); err != nil {
		return "", err
	}
	if req.RunID == "" {
		return "", status.Error(codes.InvalidArgument, "run_id is required")
	}
	return req.RunID, nil
}

// fromStruct decodes a request struct through its JSON form.
func fromStruct(in *structpb.Struct, v any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if err := json.Unmarshal(data, v); err != nil {
		return status.Error(codes.InvalidArgument, fmt.Sprintf("invalid request: %v", err))
	}
	return nil
}

// toStruct encodes a response through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, ErrRunNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrRunExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, ErrRunTerminal):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrRunIDMissing),
		errors.Is(err, ErrInvalidRunID),
		errors.Is(err, ErrInvalidDefinition),
		errors.Is(err, ErrTooManySteps):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
