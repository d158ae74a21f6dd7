package bulkaction

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/kos-api/internal/db"
	"github.com/rajivgeraev/kos-api/internal/lifecycle"
)

type MockExecutor struct{ mock.Mock }

func (m *MockExecutor) BulkArchive(ctx context.Context, ids []int64) (lifecycle.BulkResult, error) {
	args := m.Called(ids)
	return args.Get(0).(lifecycle.BulkResult), args.Error(1)
}

func (m *MockExecutor) BulkPermanentDelete(ctx context.Context, ids []int64) (lifecycle.BulkResult, error) {
	args := m.Called(ids)
	return args.Get(0).(lifecycle.BulkResult), args.Error(1)
}

type recorder struct {
	refreshed int
	errs      []error
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnRefresh: func(lifecycle.BulkResult) { r.refreshed++ },
		OnError:   func(err error) { r.errs = append(r.errs, err) },
	}
}

func answer(ok bool) ConfirmFunc {
	return func(context.Context, Prompt) (bool, error) { return ok, nil }
}

func okResult(ids ...int64) lifecycle.BulkResult {
	return lifecycle.BulkResult{Count: len(ids), Succeeded: ids, Failed: []lifecycle.BulkFailure{}}
}

func TestActionFor(t *testing.T) {
	assert.Equal(t, ActionArchive, ActionFor(false))
	assert.Equal(t, ActionPermanentDelete, ActionFor(true))
}

func TestRemoveSelected_ActiveViewArchives(t *testing.T) {
	exec := new(MockExecutor)
	rec := &recorder{}
	o := NewOrchestrator(exec, answer(true), rec.callbacks(), nil)

	exec.On("BulkArchive", []int64{1, 2}).Return(okResult(1, 2), nil).Once()

	outcome, err := o.RemoveSelected(context.Background(), []int64{1, 2}, false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Equal(t, 1, rec.refreshed)
	assert.Empty(t, rec.errs)
	exec.AssertExpectations(t)
	exec.AssertNotCalled(t, "BulkPermanentDelete", mock.Anything)
}

func TestRemoveSelected_ArchiveViewDeletes(t *testing.T) {
	exec := new(MockExecutor)
	rec := &recorder{}
	var seen Prompt
	confirm := ConfirmFunc(func(_ context.Context, p Prompt) (bool, error) {
		seen = p
		return true, nil
	})
	o := NewOrchestrator(exec, confirm, rec.callbacks(), nil)

	exec.On("BulkPermanentDelete", []int64{5}).Return(okResult(5), nil).Once()

	outcome, err := o.RemoveSelected(context.Background(), []int64{5}, true)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Equal(t, ActionPermanentDelete, seen.Action)
	exec.AssertNotCalled(t, "BulkArchive", mock.Anything)
}

func TestRemoveSelected_DeclinedDoesNothing(t *testing.T) {
	exec := new(MockExecutor)
	rec := &recorder{}
	o := NewOrchestrator(exec, answer(false), rec.callbacks(), nil)

	outcome, err := o.RemoveSelected(context.Background(), []int64{1}, true)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeclined, outcome)
	assert.Zero(t, rec.refreshed)
	assert.Empty(t, rec.errs)
	exec.AssertNotCalled(t, "BulkPermanentDelete", mock.Anything)
	exec.AssertNotCalled(t, "BulkArchive", mock.Anything)
}

func TestRemoveSelected_EmptySelection(t *testing.T) {
	exec := new(MockExecutor)
	rec := &recorder{}
	asked := false
	confirm := ConfirmFunc(func(context.Context, Prompt) (bool, error) {
		asked = true
		return true, nil
	})
	o := NewOrchestrator(exec, confirm, rec.callbacks(), nil)

	outcome, err := o.RemoveSelected(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNothingSelected, outcome)
	assert.False(t, asked)
	assert.Zero(t, rec.refreshed)
}

func TestRemoveSelected_PerIDFailureFiresOnErrorOnly(t *testing.T) {
	exec := new(MockExecutor)
	rec := &recorder{}
	o := NewOrchestrator(exec, answer(true), rec.callbacks(), nil)

	res := lifecycle.BulkResult{
		Count:     1,
		Succeeded: []int64{7},
		Failed:    []lifecycle.BulkFailure{{ID: 999, Kind: lifecycle.KindNotFound, Message: "Объявление не найдено"}},
	}
	exec.On("BulkArchive", []int64{7, 999}).Return(res, nil).Once()

	outcome, err := o.RemoveSelected(context.Background(), []int64{7, 999}, false)
	assert.Equal(t, OutcomeFailed, outcome)
	require.Error(t, err)
	assert.Zero(t, rec.refreshed)
	require.Len(t, rec.errs, 1)

	var bulkErr *BulkError
	require.True(t, errors.As(rec.errs[0], &bulkErr))
	assert.Equal(t, []int64{999}, bulkErr.Result.FailedIDs())
}

func TestRemoveSelected_ExecutorError(t *testing.T) {
	exec := new(MockExecutor)
	rec := &recorder{}
	o := NewOrchestrator(exec, answer(true), rec.callbacks(), nil)

	boom := errors.New("connection refused")
	exec.On("BulkPermanentDelete", []int64{3}).Return(lifecycle.BulkResult{}, boom).Once()

	outcome, err := o.RemoveSelected(context.Background(), []int64{3}, true)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, rec.refreshed)
	assert.Len(t, rec.errs, 1)
}

func TestRemoveSelected_DetachedSuppressesCallbacks(t *testing.T) {
	exec := new(MockExecutor)
	rec := &recorder{}
	var o *Orchestrator
	confirm := ConfirmFunc(func(context.Context, Prompt) (bool, error) {
		o.Detach()
		return true, nil
	})
	o = NewOrchestrator(exec, confirm, rec.callbacks(), nil)

	exec.On("BulkArchive", []int64{1}).Return(okResult(1), nil).Once()

	outcome, err := o.RemoveSelected(context.Background(), []int64{1}, false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Zero(t, rec.refreshed)
	exec.AssertExpectations(t)
}

func TestEngineExecutor(t *testing.T) {
	store := db.NewMemStore()
	store.CreatePair("A", 1, "A")
	store.CreatePair("B", 1, "B")

	rec := &recorder{}
	o := NewOrchestrator(EngineExecutor{Engine: lifecycle.NewEngine(store, nil), ActorID: 1}, answer(true), rec.callbacks(), nil)

	_, err := o.RemoveSelected(context.Background(), []int64{1, 2}, false)
	require.NoError(t, err)
	_, err = o.RemoveSelected(context.Background(), []int64{1}, true)
	require.NoError(t, err)

	_, ok := store.Kos(1)
	assert.False(t, ok)
	k, ok := store.Kos(2)
	require.True(t, ok)
	assert.True(t, k.Archived())
	assert.Equal(t, 2, rec.refreshed)
}

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"да\n", true},
		{"Д\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPromptConfirmer(strings.NewReader(tt.input), &out)
			ok, err := p.Confirm(context.Background(), Prompt{Action: ActionArchive, IDs: []int64{1}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Contains(t, out.String(), "[y/N]")
		})
	}
}

func TestPromptConfirmer_AnswersAcrossPrompts(t *testing.T) {
	var out bytes.Buffer
	p := NewPromptConfirmer(strings.NewReader("y\nn\nда\n"), &out)
	prompt := Prompt{Action: ActionPermanentDelete, IDs: []int64{1, 2}}

	for _, want := range []bool{true, false, true} {
		ok, err := p.Confirm(context.Background(), prompt)
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}

	// ввод закончился
	ok, err := p.Confirm(context.Background(), prompt)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 4, strings.Count(out.String(), "[y/N]"))
}

func TestPromptConfirmer_CanceledKeepsLineForNextPrompt(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	var out bytes.Buffer
	p := NewPromptConfirmer(pr, &out)
	prompt := Prompt{Action: ActionArchive, IDs: []int64{1}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := p.Confirm(ctx, prompt)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)

	go func() { _, _ = pw.Write([]byte("yes\n")) }()

	ok, err = p.Confirm(context.Background(), prompt)
	require.NoError(t, err)
	assert.True(t, ok)
}
