/*
 Copyright 2019 Vimeo Inc.
 Copyright 2026 Vimeo Inc.

 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

      http://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

// Package grpcfactor serves a factor.Factoriser over gRPC.
//
// The service has a single unary method using the well-known wrapper
// types, so no generated code is needed on either side:
//
//	service Factoriser {
//	  rpc Factorise(google.protobuf.Int64Value) returns (google.protobuf.BytesValue);
//	}
//
// The response bytes are the binary form of factor.Factors.
package grpcfactor // import "github.com/vimeo/lrumemo/grpc"

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/vimeo/lrumemo/factor"

	"github.com/golang/protobuf/ptypes/wrappers"
	"go.opencensus.io/plugin/ocgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified name of the gRPC service.
const ServiceName = "lrumemo.Factoriser"

const factoriseMethod = "/" + ServiceName + "/Factorise"

// FactoriserServer is the server API for the Factoriser service.
type FactoriserServer interface {
	Factorise(context.Context, *wrappers.Int64Value) (*wrappers.BytesValue, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FactoriserServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Factorise",
			Handler:    factoriseHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lrumemo/factoriser.proto",
}

func factoriseHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrappers.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FactoriserServer).Factorise(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: factoriseMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FactoriserServer).Factorise(ctx, req.(*wrappers.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

// Handler implements FactoriserServer on top of a factor.Factoriser.
type Handler struct {
	factoriser factor.Factoriser
	logger     *slog.Logger
}

// NewHandler creates a Handler. A nil logger discards log output.
func NewHandler(f factor.Factoriser, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{factoriser: f, logger: logger}
}

// Register creates a Handler for f and registers it with the server.
func Register(s grpc.ServiceRegistrar, f factor.Factoriser, logger *slog.Logger) {
	s.RegisterService(&serviceDesc, NewHandler(f, logger))
}

// Factorise implements FactoriserServer.
func (h *Handler) Factorise(ctx context.Context, req *wrappers.Int64Value) (*wrappers.BytesValue, error) {
	n := req.GetValue()
	if n <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "n must be positive, got %d", n)
	}
	fs, err := h.factoriser.Factorise(ctx, uint64(n))
	if err != nil {
		st := toStatus(err)
		if st.Code() == codes.Internal {
			h.logger.ErrorContext(ctx, "factorise failed", slog.Int64("n", n), slog.Any("error", err))
		}
		return nil, st.Err()
	}
	b, err := fs.MarshalBinary()
	if err != nil {
		h.logger.ErrorContext(ctx, "encoding factors", slog.Int64("n", n), slog.Any("error", err))
		return nil, status.Errorf(codes.Internal, "encoding factors of %d: %s", n, err)
	}
	return &wrappers.BytesValue{Value: b}, nil
}

func toStatus(err error) *status.Status {
	switch {
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, factor.ErrZero):
		return status.New(codes.InvalidArgument, err.Error())
	default:
		return status.New(codes.Internal, err.Error())
	}
}

// ServerOptions returns the options that instrument a server with
// opencensus. Register ocgrpc.DefaultServerViews to export them.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{grpc.StatsHandler(&ocgrpc.ServerHandler{})}
}
