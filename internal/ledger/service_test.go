package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/khata/internal/ledger"
)

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFold(t *testing.T) {
	entries := []*ledger.Entry{
		{Type: ledger.TypeSaleCredit, Amount: amount("120")},
		{Type: ledger.TypeSaleCredit, Amount: amount("80.50")},
		{Type: ledger.TypePayment, Amount: amount("100")},
		{Type: ledger.TypeSalePaid, Amount: amount("999")},
		{Type: ledger.TypePurchase, Amount: amount("500")},
	}

	b := ledger.Fold(entries)

	assert.Equal(t, "200.5", b.Credit.String())
	assert.Equal(t, "100", b.Payments.String())
	assert.Equal(t, "100.5", b.Outstanding().String())
}

func TestService_Append(t *testing.T) {
	type testCase struct {
		name      string
		entries   []*ledger.Entry
		setupMock func(m *ledger.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name:    "Empty",
			entries: nil,
		},
		{
			name:    "InvalidType",
			entries: []*ledger.Entry{{Type: "refund", Amount: amount("1")}},
			wantErr: ledger.ErrInvalidEntry,
		},
		{
			name:    "NegativeAmount",
			entries: []*ledger.Entry{{Type: ledger.TypeSalePaid, Amount: amount("-1")}},
			wantErr: ledger.ErrInvalidEntry,
		},
		{
			name:    "Success",
			entries: []*ledger.Entry{{Type: ledger.TypeSalePaid, Amount: amount("10")}},
			setupMock: func(m *ledger.MockRepository) {
				m.EXPECT().AppendEntries(gomock.Any(), gomock.Len(1)).Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := ledger.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			err := ledger.NewService(repo).Append(context.Background(), tt.entries)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestService_Balances(t *testing.T) {
	asha, ravi := uuid.New(), uuid.New()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	repo.EXPECT().ListEntries(gomock.Any(), ledger.ListFilter{}).Return([]*ledger.Entry{
		{CustomerID: &asha, Type: ledger.TypeSaleCredit, Amount: amount("300")},
		{CustomerID: &asha, Type: ledger.TypePayment, Amount: amount("100")},
		{CustomerID: &ravi, Type: ledger.TypeSaleCredit, Amount: amount("50")},
		{Type: ledger.TypePurchase, Amount: amount("1000")},
	}, nil)

	got, err := ledger.NewService(repo).Balances(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "200", got[asha].Outstanding().String())
	assert.Equal(t, "50", got[ravi].Outstanding().String())
}

func TestService_Balance_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	repo.EXPECT().ListEntries(gomock.Any(), gomock.Any()).Return(nil, errors.New("db error"))

	_, err := ledger.NewService(repo).Balance(context.Background(), uuid.New())
	assert.Error(t, err)
}
