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

package grpcfactor_test

import (
	"context"
	"errors"
	"math"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/golang/protobuf/ptypes/wrappers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/vimeo/lrumemo/factor"
	grpcfactor "github.com/vimeo/lrumemo/grpc"
	"github.com/vimeo/lrumemo/memo"
)

// startServer serves f on an in-memory listener and returns a connection
// to it.
func startServer(t *testing.T, f factor.Factoriser) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpcfactor.ServerOptions()...)
	grpcfactor.Register(srv, f, nil)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}
	conn, err := grpc.NewClient("passthrough:///bufnet",
		append(grpcfactor.DialOptions(), grpc.WithContextDialer(dialer))...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestFactorise(t *testing.T) {
	t.Parallel()

	client := grpcfactor.NewClient(startServer(t, factor.Trial{}))
	ctx := context.Background()

	tests := []struct {
		n    uint64
		want factor.Factors
	}{
		{n: 1, want: factor.Factors{}},
		{n: 12, want: factor.Factors{2, 2, 3}},
		{n: 600851475143, want: factor.Factors{71, 839, 1471, 6857}},
	}
	for _, tt := range tests {
		got, err := client.Factorise(ctx, tt.n)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "n=%d", tt.n)
	}
}

func TestFactoriseInvalidArgument(t *testing.T) {
	t.Parallel()

	conn := startServer(t, factor.Trial{})
	ctx := context.Background()

	_, err := grpcfactor.NewClient(conn).Factorise(ctx, 0)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = conn.Invoke(ctx, "/"+grpcfactor.ServiceName+"/Factorise",
		&wrappers.Int64Value{Value: -6}, new(wrappers.BytesValue))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = grpcfactor.NewClient(conn).Factorise(ctx, math.MaxUint64)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestFactoriseInternalError(t *testing.T) {
	t.Parallel()

	failing := factor.FactoriserFunc(func(context.Context, uint64) (factor.Factors, error) {
		return nil, errors.New("disk on fire")
	})
	_, err := grpcfactor.NewClient(startServer(t, failing)).Factorise(context.Background(), 10)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Internal, st.Code())
	assert.Contains(t, st.Message(), "disk on fire")
}

func TestFactoriseDeadline(t *testing.T) {
	t.Parallel()

	client := grpcfactor.NewClient(startServer(t, factor.Trial{Delay: time.Minute}))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Factorise(ctx, 12)
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
}

func TestFactoriseThroughSharedCache(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls = map[uint64]int{}
	)
	counting := factor.FactoriserFunc(func(ctx context.Context, n uint64) (factor.Factors, error) {
		mu.Lock()
		calls[n]++
		mu.Unlock()
		return factor.Trial{}.Factorise(ctx, n)
	})
	shared, err := factor.NewShared("grpc_test", counting, memo.ShardedParams[uint64, factor.Factors]{
		Params: memo.Params[uint64, factor.Factors]{Capacity: 16},
		Shards: 2,
	})
	require.NoError(t, err)

	client := grpcfactor.NewClient(startServer(t, shared))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		for n := uint64(2); n < 10; n++ {
			fs, err := client.Factorise(ctx, n)
			require.NoError(t, err)
			assert.Equal(t, n, fs.Product())
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for n := uint64(2); n < 10; n++ {
		assert.Equal(t, 1, calls[n], "n=%d", n)
	}
	st := shared.Stats()
	assert.EqualValues(t, 16, st.Cache.Hits)
	assert.EqualValues(t, 8, st.Cache.Misses)
}
