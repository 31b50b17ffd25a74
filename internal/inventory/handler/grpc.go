package handler

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/pkg/logger"
)

const InventoryServiceName = "madison.inventory.v1.InventoryService"

// InventoryServiceServer is the gRPC surface. Every message is a
// google.protobuf.Struct carrying the JSON shape of the dto/model types.
type InventoryServiceServer interface {
	ListItems(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchItems(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApplyTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AdjustStock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTransactions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListItemTransactions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UsageStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Dashboard(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LowStock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Analytics(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetData(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(InventoryServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(InventoryServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + InventoryServiceName + "/" + name,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(InventoryServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var InventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: InventoryServiceName,
	HandlerType: (*InventoryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc("ListItems", InventoryServiceServer.ListItems),
		methodDesc("SearchItems", InventoryServiceServer.SearchItems),
		methodDesc("AddItem", InventoryServiceServer.AddItem),
		methodDesc("UpdateItem", InventoryServiceServer.UpdateItem),
		methodDesc("DeleteItem", InventoryServiceServer.DeleteItem),
		methodDesc("ApplyTransaction", InventoryServiceServer.ApplyTransaction),
		methodDesc("AdjustStock", InventoryServiceServer.AdjustStock),
		methodDesc("ListTransactions", InventoryServiceServer.ListTransactions),
		methodDesc("ListItemTransactions", InventoryServiceServer.ListItemTransactions),
		methodDesc("UsageStats", InventoryServiceServer.UsageStats),
		methodDesc("Dashboard", InventoryServiceServer.Dashboard),
		methodDesc("LowStock", InventoryServiceServer.LowStock),
		methodDesc("Analytics", InventoryServiceServer.Analytics),
		methodDesc("ResetData", InventoryServiceServer.ResetData),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "madison/inventory/v1/inventory.proto",
}

func RegisterInventoryServiceServer(s grpc.ServiceRegistrar, srv InventoryServiceServer) {
	s.RegisterService(&InventoryServiceDesc, srv)
}

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

type idRequest struct {
	ID string `json:"id"`
}

type daysRequest struct {
	Days int `json:"days"`
}

func (h *InventoryHandler) ListItems(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	items, err := h.uc.ListItems(ctx)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toStruct(map[string]any{"items": items})
}

func (h *InventoryHandler) SearchItems(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	items, err := h.uc.SearchItems(ctx, in.Query)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toStruct(map[string]any{"items": items})
}

func (h *InventoryHandler) AddItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dto.CreateItemInput
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	items, err := h.uc.CreateItem(ctx, &in)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toStruct(map[string]any{"items": items})
}

func (h *InventoryHandler) UpdateItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		ID    string        `json:"id"`
		Patch dto.ItemPatch `json:"patch"`
	}
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	items, err := h.uc.UpdateItem(ctx, in.ID, in.Patch)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toStruct(map[string]any{"items": items})
}

func (h *InventoryHandler) DeleteItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in idRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	items, err := h.uc.DeleteItem(ctx, in.ID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toStruct(map[string]any{"items": items})
}

func (h *InventoryHandler) ApplyTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dto.StockChange
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	item, tx, err := h.uc.ApplyTransaction(ctx, in)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toStruct(map[string]any{"item": item, "transaction": tx})
}

func (h *InventoryHandler) AdjustStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		ID    string `json:"id"`
		Delta int    `json:"delta"`
	}
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	item, err := h.uc.AdjustStock(ctx, in.ID, in.Delta)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toStruct(map[string]any{"item": item})
}

func (h *InventoryHandler) ListTransactions(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	txs, err := h.uc.ListTransactions(ctx)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toStruct(map[string]any{"transactions": txs})
}

func (h *InventoryHandler) ListItemTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		ItemID string `json:"itemId"`
	}
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	txs, err := h.uc.ListItemTransactions(ctx, in.ItemID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toStruct(map[string]any{"transactions": txs})
}

func (h *InventoryHandler) UsageStats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in daysRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	txs, err := h.uc.UsageStats(ctx, in.Days)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toStruct(map[string]any{"transactions": txs})
}

func (h *InventoryHandler) Dashboard(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	stats, err := h.uc.Dashboard(ctx)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toStruct(stats)
}

func (h *InventoryHandler) LowStock(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	items, err := h.uc.ListLowStock(ctx)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toStruct(map[string]any{"items": items})
}

func (h *InventoryHandler) Analytics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in daysRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	report, err := h.uc.Analytics(ctx, in.Days)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toStruct(report)
}

func (h *InventoryHandler) ResetData(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := h.uc.Reset(ctx); err != nil {
		return nil, h.toStatus(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

func (h *InventoryHandler) toStatus(err error) error {
	code := errorCode(err)
	if code == codes.Internal {
		h.logger.Error("inventory request failed", zap.Error(err))
	}
	return status.Error(code, err.Error())
}

func errorCode(err error) codes.Code {
	switch {
	case model.IsValidation(err):
		return codes.InvalidArgument
	case errors.Is(err, model.ErrItemNotFound):
		return codes.NotFound
	case errors.Is(err, model.ErrDuplicateItem), errors.Is(err, model.ErrDuplicateChange):
		return codes.AlreadyExists
	case errors.Is(err, model.ErrInsufficientStock):
		return codes.FailedPrecondition
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

// toStruct converts v through its JSON form so the Struct matches what the
// HTTP API returns.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}

func fromStruct(req *structpb.Struct, dst any) error {
	if req == nil {
		return nil
	}
	data, err := protojson.Marshal(req)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return status.Error(codes.InvalidArgument, "malformed request: "+err.Error())
	}
	return nil
}
