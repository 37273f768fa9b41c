package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/secondlook/secondlook/internal/domain"
	"github.com/secondlook/secondlook/internal/form"
	"github.com/secondlook/secondlook/internal/history"
	"github.com/secondlook/secondlook/internal/scoring"
	"github.com/secondlook/secondlook/internal/txview"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPredictor is a hand-written mock with a function field.
type mockPredictor struct {
	predictFunc func(ctx context.Context, sub form.Submission) (*domain.Assessment, error)
}

func (m *mockPredictor) Predict(ctx context.Context, sub form.Submission) (*domain.Assessment, error) {
	return m.predictFunc(ctx, sub)
}

type mockArchiver struct {
	uri   string
	err   error
	calls int
}

func (m *mockArchiver) Archive(ctx context.Context, f form.File) (string, error) {
	m.calls++
	return m.uri, m.err
}

type failingRepo struct {
	history.MemoryStore
}

func (r *failingRepo) Append(ctx context.Context, rec domain.HistoryRecord) error {
	return errors.New("disk full")
}

func submission() form.Submission {
	return form.Submission{
		FullName:   "Jane Wanjiku",
		Amount:     decimal.NewFromInt(50000),
		TermMonths: 6,
		Statement:  form.NewFile("jan.pdf", "application/pdf", []byte("%PDF-1.4")),
		Selected:   1,
	}
}

func txn(receipt string, typ domain.TransactionType, amount int64, date string) domain.Transaction {
	t := domain.Transaction{
		ReceiptNo: receipt,
		Type:      typ,
		Status:    domain.TxCompleted,
		DateISO:   date,
		MonthYear: "Jan 2024",
	}
	if typ == domain.TypeDeposit {
		t.AmountIn = decimal.NewFromInt(amount)
	} else {
		t.AmountOut = decimal.NewFromInt(amount)
	}
	return t
}

func approved() *domain.Assessment {
	return &domain.Assessment{
		Decision: domain.DecisionResult{
			Status:       domain.DecisionApproved,
			Score:        82,
			InterestRate: 12.5,
			ReasonCodes:  []string{"Stable income"},
			Breakdown:    map[string]string{domain.BreakdownTransactionVolume: "3 total transactions"},
		},
		Transactions: []domain.Transaction{
			txn("C", domain.TypeDeposit, 300, "2024-01-03T10:00:00"),
			txn("A", domain.TypeDeposit, 100, "2024-01-01T10:00:00"),
			txn("B", domain.TypeWithdrawal, 50, "2024-01-02T10:00:00"),
		},
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSubmit_Success(t *testing.T) {
	ctx := context.Background()
	repo := history.NewMemoryStore()
	at := time.Date(2024, 2, 1, 9, 40, 0, 0, time.UTC)
	p := &mockPredictor{predictFunc: func(ctx context.Context, sub form.Submission) (*domain.Assessment, error) {
		assert.Equal(t, "jan.pdf", sub.Statement.Name)
		return approved(), nil
	}}
	c := NewController(p, repo, zerolog.Nop(), WithClock(fixedClock(at)))

	require.NoError(t, c.Submit(ctx, submission()))

	st := c.State()
	require.True(t, st.HasResult())
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	assert.Equal(t, domain.DecisionApproved, st.Result.Status)
	assert.Equal(t, "jan.pdf", st.Filename)
	assert.Len(t, st.Transactions, 3)

	records, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, at.UnixMilli(), records[0].ID)
	assert.Equal(t, "2024-02-01T09:40:00.000Z", records[0].Timestamp)
	assert.Equal(t, "jan.pdf", records[0].Filename)
	assert.Equal(t, domain.DecisionApproved, records[0].Status)
	assert.Equal(t, 3, records[0].Result.TransactionCount)
	assert.Empty(t, records[0].StatementURI)

	dv := c.DecisionView()
	require.NotNil(t, dv)
	assert.Equal(t, "APPROVED", dv.Theme.Label)
	assert.Equal(t, 3, dv.TransactionCount)
}

func TestSubmit_ServerErrorShowsMessageOnly(t *testing.T) {
	ctx := context.Background()
	repo := history.NewMemoryStore()
	p := &mockPredictor{predictFunc: func(context.Context, form.Submission) (*domain.Assessment, error) {
		return nil, &scoring.ServerError{StatusCode: 400, Message: "invalid file"}
	}}
	c := NewController(p, repo, zerolog.Nop())

	require.NoError(t, c.Submit(ctx, submission()))

	st := c.State()
	assert.Equal(t, "invalid file", st.Error)
	assert.False(t, st.Loading)
	assert.Nil(t, st.Result)
	assert.Empty(t, st.Transactions)
	assert.Nil(t, c.DecisionView())

	records, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSubmit_OtherErrorsUseGenericMessage(t *testing.T) {
	p := &mockPredictor{predictFunc: func(context.Context, form.Submission) (*domain.Assessment, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}
	c := NewController(p, nil, zerolog.Nop())

	require.NoError(t, c.Submit(context.Background(), submission()))
	assert.Equal(t, GenericFailure, c.State().Error)
}

func TestSubmit_FailureKeepsPreviousResult(t *testing.T) {
	ctx := context.Background()
	fail := false
	p := &mockPredictor{predictFunc: func(context.Context, form.Submission) (*domain.Assessment, error) {
		if fail {
			return nil, &scoring.ServerError{StatusCode: 500, Message: "Server error: 500"}
		}
		return approved(), nil
	}}
	c := NewController(p, history.NewMemoryStore(), zerolog.Nop())

	require.NoError(t, c.Submit(ctx, submission()))
	fail = true
	require.NoError(t, c.Submit(ctx, submission()))

	st := c.State()
	assert.Equal(t, "Server error: 500", st.Error)
	require.NotNil(t, st.Result)
	assert.Equal(t, domain.DecisionApproved, st.Result.Status)

	c.DismissError()
	assert.Empty(t, c.State().Error)
	assert.NotNil(t, c.State().Result)
}

func TestSubmit_RejectsWhileInFlight(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	p := &mockPredictor{predictFunc: func(context.Context, form.Submission) (*domain.Assessment, error) {
		close(started)
		<-release
		return approved(), nil
	}}
	c := NewController(p, history.NewMemoryStore(), zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- c.Submit(ctx, submission()) }()
	<-started

	assert.True(t, c.State().Loading)
	assert.ErrorIs(t, c.Submit(ctx, submission()), ErrSubmissionInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, c.State().Loading)
	assert.True(t, c.State().HasResult())
}

func TestSubmit_StaleResultDiscardedAfterReset(t *testing.T) {
	ctx := context.Background()
	repo := history.NewMemoryStore()
	started := make(chan struct{})
	release := make(chan struct{})
	p := &mockPredictor{predictFunc: func(context.Context, form.Submission) (*domain.Assessment, error) {
		close(started)
		<-release
		return approved(), nil
	}}
	c := NewController(p, repo, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- c.Submit(ctx, submission()) }()
	<-started

	c.Reset()
	assert.False(t, c.State().Loading)

	close(release)
	require.NoError(t, <-done)

	st := c.State()
	assert.Nil(t, st.Result)
	assert.Empty(t, st.Transactions)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)

	records, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSubmit_StaleFailureDiscardedAfterReset(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	p := &mockPredictor{predictFunc: func(context.Context, form.Submission) (*domain.Assessment, error) {
		close(started)
		<-release
		return nil, errors.New("timeout")
	}}
	c := NewController(p, nil, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), submission()) }()
	<-started
	c.Reset()
	close(release)
	require.NoError(t, <-done)

	assert.Empty(t, c.State().Error)
}

func TestSubmit_HistoryIDsStrictlyIncrease(t *testing.T) {
	ctx := context.Background()
	repo := history.NewMemoryStore()
	p := &mockPredictor{predictFunc: func(context.Context, form.Submission) (*domain.Assessment, error) {
		return approved(), nil
	}}
	at := time.Date(2024, 2, 1, 9, 40, 0, 0, time.UTC)
	c := NewController(p, repo, zerolog.Nop(), WithClock(fixedClock(at)))

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Submit(ctx, submission()))
	}

	records, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, at.UnixMilli()+2, records[0].ID)
	assert.Equal(t, at.UnixMilli()+1, records[1].ID)
	assert.Equal(t, at.UnixMilli(), records[2].ID)
}

func TestSubmit_Archiver(t *testing.T) {
	ctx := context.Background()
	p := &mockPredictor{predictFunc: func(context.Context, form.Submission) (*domain.Assessment, error) {
		return approved(), nil
	}}

	t.Run("uri recorded", func(t *testing.T) {
		repo := history.NewMemoryStore()
		a := &mockArchiver{uri: "gs://b/statements/2024/02/01/x-jan.pdf"}
		c := NewController(p, repo, zerolog.Nop(), WithArchiver(a))

		require.NoError(t, c.Submit(ctx, submission()))

		records, err := repo.Load(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, 1, a.calls)
		assert.Equal(t, "gs://b/statements/2024/02/01/x-jan.pdf", records[0].StatementURI)
	})

	t.Run("failure does not fail submission", func(t *testing.T) {
		repo := history.NewMemoryStore()
		a := &mockArchiver{uri: "ignored", err: errors.New("403")}
		c := NewController(p, repo, zerolog.Nop(), WithArchiver(a))

		require.NoError(t, c.Submit(ctx, submission()))

		assert.True(t, c.State().HasResult())
		records, err := repo.Load(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Empty(t, records[0].StatementURI)
	})
}

func TestSubmit_HistoryFailureStillShowsResult(t *testing.T) {
	p := &mockPredictor{predictFunc: func(context.Context, form.Submission) (*domain.Assessment, error) {
		return approved(), nil
	}}
	c := NewController(p, &failingRepo{}, zerolog.Nop())

	require.NoError(t, c.Submit(context.Background(), submission()))

	st := c.State()
	assert.True(t, st.HasResult())
	assert.Empty(t, st.Error)
}

func TestTransactionView(t *testing.T) {
	p := &mockPredictor{predictFunc: func(context.Context, form.Submission) (*domain.Assessment, error) {
		return approved(), nil
	}}
	c := NewController(p, nil, zerolog.Nop())

	assert.True(t, c.TransactionView().Empty)

	require.NoError(t, c.Submit(context.Background(), submission()))

	v := c.TransactionView()
	require.NotNil(t, v.Page)
	var order []string
	for _, tx := range v.Page.Items {
		order = append(order, tx.ReceiptNo)
	}
	assert.Equal(t, []string{"A", "B", "C"}, order)

	v = c.UpdateView(func(s *txview.State) {
		s.SetTypeFilter(txview.FilterDeposit)
		s.TogglePeriod("Jan 2024")
	})
	assert.Equal(t, 2, v.Filtered)
	assert.Equal(t, txview.FilterDeposit, c.State().View.Type)
	assert.True(t, c.State().View.IsExpanded("Jan 2024"))

	v = c.NextPage()
	assert.Equal(t, 1, v.State.Page)

	c.Reset()
	st := c.State()
	assert.Equal(t, txview.NewState(), st.View)
	assert.True(t, c.TransactionView().Empty)
}

func TestStateIsASnapshot(t *testing.T) {
	p := &mockPredictor{predictFunc: func(context.Context, form.Submission) (*domain.Assessment, error) {
		return approved(), nil
	}}
	c := NewController(p, nil, zerolog.Nop())
	require.NoError(t, c.Submit(context.Background(), submission()))

	st := c.State()
	st.Result.Status = domain.DecisionDeclined
	st.Transactions[0].ReceiptNo = "changed"
	st.View.Expanded["x"] = true

	again := c.State()
	assert.Equal(t, domain.DecisionApproved, again.Result.Status)
	assert.Equal(t, "C", again.Transactions[0].ReceiptNo)
	assert.False(t, again.View.IsExpanded("x"))
}
