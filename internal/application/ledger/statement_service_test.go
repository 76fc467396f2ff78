package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementService_ExportPlanStatement(t *testing.T) {
	f := newFixture(t, 0)
	inv := f.createInstallment(t, 3_000_000, 3)
	planID := *f.confirm(t, inv.ID).PlanID
	_, err := f.svc.ApplyPayment(context.Background(), ApplyPaymentCommand{
		ActorID: actor, PlanID: planID, Amount: decimal.NewFromInt(1_250_000),
		ReceivedDate: fixedNow, Reference: "ST-1",
	})
	require.NoError(t, err)

	storage := &memObjectStorage{}
	svc := NewStatementService(f.store.scope(), storage, time.Hour, nil)

	resp, err := svc.ExportPlanStatement(context.Background(), actor, planID)
	require.NoError(t, err)
	assert.Equal(t, planID, resp.PlanID)
	assert.True(t, strings.HasPrefix(resp.ObjectKey, "statements/"+planID.String()+"/"))
	assert.True(t, strings.HasSuffix(resp.DownloadURL, resp.ObjectKey))
	assert.Contains(t, f.store.auditActions(), ledger.AuditPlanStatementExported)

	rows, err := csv.NewReader(bytes.NewReader(storage.objects[resp.ObjectKey])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, statementHeader, rows[0])
	assert.Equal(t, []string{"1", "2024-02-01", "1000000.00", "0.00", "1000000.00", "2024-01-01", "PAID", "0", "ST-1"}, rows[1])
	assert.Equal(t, "PARTIAL", rows[2][6])
	assert.Equal(t, "250000.00", rows[2][4])
	assert.Equal(t, []string{"total", "", "3000000.00", "0.00", "1250000.00", "", "ACTIVE", "", ""}, rows[4])
}

func TestStatementService_Errors(t *testing.T) {
	f := newFixture(t, 0)
	svc := NewStatementService(f.store.scope(), &memObjectStorage{}, 0, nil)

	_, err := svc.ExportPlanStatement(context.Background(), "", uuid.New())
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.ExportPlanStatement(context.Background(), actor, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
