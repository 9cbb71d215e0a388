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

package grpcfactor

import (
	"context"
	"fmt"
	"math"

	"github.com/vimeo/lrumemo/factor"

	"github.com/golang/protobuf/ptypes/wrappers"
	"go.opencensus.io/plugin/ocgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// Client is a factor.Factoriser that asks a remote Factoriser service.
type Client struct {
	cc grpc.ClientConnInterface
}

var _ factor.Factoriser = (*Client)(nil)

// NewClient creates a client on an established connection; the caller
// keeps ownership of cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Factorise implements factor.Factoriser by sending a Factorise request.
// Errors carry the server's gRPC status.
func (c *Client) Factorise(ctx context.Context, n uint64) (factor.Factors, error) {
	if n > math.MaxInt64 {
		return nil, status.Errorf(codes.InvalidArgument, "n %d does not fit the request", n)
	}
	out := new(wrappers.BytesValue)
	if err := c.cc.Invoke(ctx, factoriseMethod, &wrappers.Int64Value{Value: int64(n)}, out); err != nil {
		return nil, err
	}
	var fs factor.Factors
	if err := fs.UnmarshalBinary(out.GetValue()); err != nil {
		return nil, fmt.Errorf("decoding factors of %d: %w", n, err)
	}
	return fs, nil
}

// DialOptions returns the options for an unencrypted connection
// instrumented with opencensus. Register ocgrpc.DefaultClientViews to
// export them.
func DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(&ocgrpc.ClientHandler{}),
	}
}
