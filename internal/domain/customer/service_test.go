package customer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/id"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain"
	"bloomledger/internal/domain/customer"
	"bloomledger/internal/infrastructure/storage/memory"
)

const operator = "desk@shop.test"

func newService(t *testing.T) *customer.Service {
	t.Helper()
	b := memory.NewBackend(5, nil, time.Hour)
	return customer.NewService(b.Customers, b.TxManager)
}

func seed(t *testing.T, svc *customer.Service, contact string, points int64) *customer.Customer {
	t.Helper()
	c := customer.New(contact, "Customer "+contact)
	c.Points = points
	require.NoError(t, svc.Create(context.Background(), operator, "Seoul", c))
	return c
}

func TestNormalizeContact(t *testing.T) {
	tests := map[string]string{
		"010-1234-5678":     "01012345678",
		" (010) 1234 5678 ": "01012345678",
		"+82 10.1234.5678":  "821012345678",
		"Mina@Example.COM":  "mina@example.com",
		"kakao:FlowerShop":  "kakao:flowershop",
		"   ":               "",
		"---":               "---",
	}
	for in, want := range tests {
		assert.Equal(t, want, customer.NormalizeContact(in), in)
	}
}

func TestFindByContact_NormalizesLookup(t *testing.T) {
	svc := newService(t)
	c := seed(t, svc, "010-2222-3333", 0)

	got, err := svc.FindByContact(context.Background(), " 010 2222 3333 ")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = svc.FindByContact(context.Background(), "010-0000-0000")
	assert.True(t, apperror.IsNotFound(err))
}

func TestCreate_RejectsDuplicateContact(t *testing.T) {
	svc := newService(t)
	seed(t, svc, "010-2222-3333", 0)

	err := svc.Create(context.Background(), operator, "Busan", customer.New("01022223333", "Someone else"))
	assert.True(t, apperror.IsDuplicate(err))
}

func TestDelete_FreesContact(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	c := seed(t, svc, "010-2222-3333", 0)

	require.NoError(t, svc.Delete(ctx, c.ID))
	_, err := svc.FindByContact(ctx, "01022223333")
	assert.True(t, apperror.IsNotFound(err))

	again := customer.New("01022223333", "New owner")
	require.NoError(t, svc.Create(ctx, operator, "Seoul", again))
	assert.NotEqual(t, c.ID, again.ID)
}

func TestAdjustPoints_RoundTripAndHistory(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	c := seed(t, svc, "010-1000-1000", 1000)

	_, err := svc.AdjustPoints(ctx, customer.PointAdjustment{CustomerID: c.ID, Delta: 250, Reason: "event", Operator: operator})
	require.NoError(t, err)
	entry, err := svc.AdjustPoints(ctx, customer.PointAdjustment{CustomerID: c.ID, Delta: -250, Reason: "event rollback", Operator: operator})
	require.NoError(t, err)
	assert.Equal(t, int64(1250), entry.Previous)
	assert.Equal(t, int64(1000), entry.New)
	assert.Equal(t, int64(-250), entry.Difference)
	assert.Equal(t, operator, entry.Modifier)

	got, err := svc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.Points)

	history, err := svc.PointHistory(ctx, c.ID, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, history.Items, 3)
	assert.Equal(t, "event rollback", history.Items[0].Reason)
	assert.Equal(t, "event", history.Items[1].Reason)
	assert.Equal(t, customer.ReasonInitial, history.Items[2].Reason)
	for _, e := range history.Items {
		assert.Equal(t, e.New-e.Previous, e.Difference)
	}
}

func TestAdjustPoints_ClampsAtZero(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	c := seed(t, svc, "010-1000-2000", 300)

	entry, err := svc.AdjustPoints(ctx, customer.PointAdjustment{CustomerID: c.ID, Delta: -500, Reason: "correction", Operator: operator})
	require.NoError(t, err)
	assert.Equal(t, int64(300), entry.Previous)
	assert.Equal(t, int64(0), entry.New)
	assert.Equal(t, int64(-300), entry.Difference)

	got, err := svc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Points)
}

func TestAdjustPoints_Errors(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	c := seed(t, svc, "010-1000-3000", 10)

	_, err := svc.AdjustPoints(ctx, customer.PointAdjustment{CustomerID: c.ID, Delta: 5})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))

	_, err = svc.AdjustPoints(ctx, customer.PointAdjustment{CustomerID: id.New(), Delta: 5, Reason: "gift"})
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, svc.Delete(ctx, c.ID))
	_, err = svc.AdjustPoints(ctx, customer.PointAdjustment{CustomerID: c.ID, Delta: 5, Reason: "gift"})
	assert.True(t, apperror.IsNotFound(err))
}

func TestUpsertFromOrder_CreatesThenMerges(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

	created, err := svc.UpsertFromOrder(ctx, operator, customer.OrderFacts{
		OrderID: id.New(), Branch: "Seoul", OrderedAt: at,
		Contact: "010-4444-5555", Name: "Seo", Company: "Seo Florals",
		Total: types.MustMoney("50000"), PointsEarned: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, customer.TypeCompany, created.Type)
	assert.Equal(t, "01044445555", created.Contact)
	assert.Equal(t, int64(1000), created.Points)

	later := at.Add(48 * time.Hour)
	facts := customer.OrderFacts{
		OrderID: id.New(), Branch: "Busan", OrderedAt: later,
		Contact: "01044445555", Name: "Ignored", Email: "seo@example.com",
		Total: types.MustMoney("10000"), PointsEarned: 200, PointsUsed: 1500,
	}
	_, err = svc.UpsertFromOrder(ctx, operator, facts)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))

	facts.PointsUsed = 1000
	merged, err := svc.UpsertFromOrder(ctx, operator, facts)
	require.NoError(t, err)
	assert.Equal(t, created.ID, merged.ID)
	assert.Equal(t, "Seo", merged.Name)
	assert.Equal(t, "seo@example.com", merged.Email)
	assert.Equal(t, int64(2), merged.OrderCount)
	assert.True(t, merged.TotalSpent.Equal(types.MustMoney("60000")))
	assert.Equal(t, int64(200), merged.Points)
	assert.Equal(t, "Busan", merged.PrimaryBranch)
	require.NotNil(t, merged.LastOrderAt)
	assert.True(t, merged.LastOrderAt.Equal(later))
	assert.True(t, merged.Branches["Seoul"].RegisteredAt.Equal(at))
	assert.True(t, merged.Branches["Busan"].RegisteredAt.Equal(later))

	_, err = svc.UpsertFromOrder(ctx, operator, customer.OrderFacts{Branch: "Seoul"})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))
}

func TestRedeemAndRefundPoints(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	c := seed(t, svc, "010-6000-6000", 300)
	orderID := id.New()

	_, err := svc.RedeemPoints(ctx, operator, c.ID, orderID, 301)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))

	got, err := svc.RedeemPoints(ctx, operator, c.ID, orderID, 300)
	require.NoError(t, err)
	assert.Zero(t, got.Points)

	require.NoError(t, svc.Delete(ctx, c.ID))
	_, err = svc.RedeemPoints(ctx, operator, c.ID, id.New(), 1)
	assert.True(t, apperror.IsNotFound(err))

	got, err = svc.RefundPoints(ctx, operator, c.ID, orderID, 300)
	require.NoError(t, err)
	assert.Equal(t, int64(300), got.Points)

	history, err := svc.PointHistory(ctx, c.ID, domain.ListFilter{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(history.Items), 2)
	assert.Equal(t, customer.ReasonOrderCancel, history.Items[0].Reason)
	assert.Equal(t, int64(300), history.Items[0].Difference)
	assert.Equal(t, customer.ReasonPointsUsed, history.Items[1].Reason)
}

func TestReverseOrder_UndoesBookkeeping(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	facts := customer.OrderFacts{
		OrderID: id.New(), Branch: "Seoul", OrderedAt: time.Now().UTC(),
		Contact: "010-7000-7000", Name: "Ko",
		Total: types.MustMoney("30000"), PointsEarned: 600,
	}
	c, err := svc.UpsertFromOrder(ctx, operator, facts)
	require.NoError(t, err)

	reversed, err := svc.ReverseOrder(ctx, operator, c.ID, facts)
	require.NoError(t, err)
	assert.Zero(t, reversed.OrderCount)
	assert.True(t, reversed.TotalSpent.IsZero())
	assert.Zero(t, reversed.Points)

	history, err := svc.PointHistory(ctx, c.ID, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, history.Items, 2)
	assert.Equal(t, customer.ReasonOrderCancel, history.Items[0].Reason)
	assert.Equal(t, facts.OrderID, *history.Items[0].OrderID)
}

func TestUpdate_KeepsLedgerFields(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	c := seed(t, svc, "010-8000-8000", 400)
	registered := c.Branches["Seoul"].RegisteredAt

	input := c.Clone()
	input.Name = "Renamed"
	input.Points = 999999
	input.OrderCount = 42
	input.Branches = customer.Branches{
		"Seoul": {Grade: "VIP", Notes: "likes tulips"},
		"Busan": {Grade: "regular"},
	}
	updated, err := svc.Update(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, int64(400), updated.Points)
	assert.Zero(t, updated.OrderCount)
	assert.Equal(t, "VIP", updated.Branches["Seoul"].Grade)
	assert.True(t, updated.Branches["Seoul"].RegisteredAt.Equal(registered))
	assert.False(t, updated.Branches["Busan"].RegisteredAt.IsZero())

	_, err = svc.Update(ctx, input)
	assert.True(t, apperror.IsConcurrentModification(err))
}

func TestList_FiltersByBranch(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	seed(t, svc, "010-0000-0001", 0)
	other := customer.New("010-0000-0002", "Busan only")
	require.NoError(t, svc.Create(ctx, operator, "Busan", other))

	res, err := svc.List(ctx, customer.Filter{Branch: "Busan"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, other.ID, res.Items[0].ID)
}

func TestImport_CountsOutcomes(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	seed(t, svc, "010-5000-0000", 0)

	rows := []domain.Row{
		{"Contact": "010-5000-0001", "Name": "Ahn", "Points": "1,200", "Grade": "VIP"},
		{"Phone": "010-5000-0000", "Name": "Existing"},
		{},
		{"Contact": "010-5000-0002", "Name": "Bad", "Points": "-5"},
		{"Contact": "010-5000-0003", "Name": "Corp", "Company": "Acme", "Branch": "Busan"},
		{"Contact": "", "Name": "No contact"},
	}
	report := svc.Import(ctx, operator, "Seoul", rows)
	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Failed)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, 4, report.Errors[0].Row)
	assert.Equal(t, 6, report.Errors[1].Row)

	ahn, err := svc.FindByContact(ctx, "01050000001")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), ahn.Points)
	assert.Equal(t, "VIP", ahn.Branches["Seoul"].Grade)

	corp, err := svc.FindByContact(ctx, "01050000003")
	require.NoError(t, err)
	assert.Equal(t, customer.TypeCompany, corp.Type)
	assert.Contains(t, corp.Branches, "Busan")
}
