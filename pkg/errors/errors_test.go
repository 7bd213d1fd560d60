package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// generateErrorFixtures creates test fixtures with sample metadata for each error type
func generateErrorFixtures() []Error {
	assetId := "3f5a0c1b9e2d4f6a8b7c0d1e2f3a4b5c6d7e8f901a2b3c4d5e6f708192a3b4c5"
	return []Error{
		INTERNAL_ERROR.New("failed to open ledger transaction").
			WithMetadata(map[string]any{"component": "badger"}),
		ASSET_NOT_FOUND.New("asset %s not found", assetId).
			WithMetadata(AssetMetadata{AssetId: assetId}),
		ASSET_ALREADY_EXISTS.New("asset %s already exists", assetId).
			WithMetadata(AssetMetadata{AssetId: assetId}),
		NOT_OWNER.New("caller is not the owner").
			WithMetadata(OwnerMetadata{AssetId: assetId, Owner: "alice", Caller: "bob"}),
		ALREADY_OWNER.New("caller already owns the asset").
			WithMetadata(OwnerMetadata{AssetId: assetId, Owner: "alice", Caller: "alice"}),
		COUNT_OVERFLOW.New("owned count overflow").
			WithMetadata(CountMetadata{Scope: "owner:alice", Count: 18446744073709551615}),
		COUNT_UNDERFLOW.New("owned count underflow").
			WithMetadata(CountMetadata{Scope: "owner:alice", Count: 0}),
		NOT_FOR_SALE.New("asset is not for sale").
			WithMetadata(AssetMetadata{AssetId: assetId}),
		PRICE_EXCEEDS_LIMIT.New("price exceeds limit").
			WithMetadata(PriceMetadata{AssetId: assetId, Price: 100, MaxPrice: 99}),
		PAYMENT_FAILED.New("insufficient balance").
			WithMetadata(PaymentMetadata{From: "bob", To: "alice", Amount: 100}),
		INVARIANT_VIOLATION.New("asset missing from global registry").
			WithMetadata(InvariantMetadata{AssetId: assetId, Scope: "global"}),
		UNAUTHENTICATED.New("missing caller identity"),
		INVALID_ARGUMENT.New("invalid asset id").
			WithMetadata(map[string]any{"asset_id": "zz"}),
	}
}

func TestErrorGRPCStatus(t *testing.T) {
	fixtures := generateErrorFixtures()

	for _, err := range fixtures {
		require.NotNil(t, err)
		require.NotEmpty(t, err.Error())

		st := status.Convert(err)
		require.NotNil(t, st)
		require.Equal(t, err.GrpcCode(), st.Code())

		details := st.Details()
		require.Len(t, details, 1)

		detail := details[0].(*errdetails.ErrorInfo)
		require.Equal(t, err.CodeName(), detail.Reason)
		require.Equal(t, errorDomain, detail.Domain)
	}
}

func TestErrorMetadata(t *testing.T) {
	err := PRICE_EXCEEDS_LIMIT.New("price exceeds limit").
		WithMetadata(PriceMetadata{AssetId: "aa", Price: 100, MaxPrice: 99})

	metadata := err.Metadata()
	require.Equal(t, "aa", metadata["asset_id"])
	require.Equal(t, "100", metadata["price"])
	require.Equal(t, "99", metadata["max_price"])
}

func TestCodeIs(t *testing.T) {
	cause := fmt.Errorf("insufficient balance")
	err := PAYMENT_FAILED.Wrap(cause)
	wrapped := fmt.Errorf("buy: %w", err)

	require.True(t, PAYMENT_FAILED.Is(err))
	require.True(t, PAYMENT_FAILED.Is(wrapped))
	require.False(t, NOT_FOR_SALE.Is(wrapped))
	require.False(t, PAYMENT_FAILED.Is(cause))
	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, grpccodes.FailedPrecondition, err.GrpcCode())
	require.Equal(t, "PAYMENT_FAILED (9): insufficient balance", err.Error())
}
