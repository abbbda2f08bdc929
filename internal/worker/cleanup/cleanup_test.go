package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// SessionSweeper インターフェースに対するモック実装
type mockSweeper struct {
	mu           sync.Mutex
	callCount    int
	deletedCount int64
	err          error
}

func (m *mockSweeper) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	return m.deletedCount, m.err
}

func (m *mockSweeper) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

type recordingSweepMetrics struct {
	swept []int64
}

func (m *recordingSweepMetrics) RecordSessionsSwept(count int64) {
	m.swept = append(m.swept, count)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestNewSweepJob_ReturnsNonNil(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	job := NewSweepJob(&mockSweeper{}, nil, logger)

	if job == nil {
		t.Fatal("NewSweepJob は nil を返してはならない")
	}
}

func TestSweepJob_Run_CallsDeleteExpired(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockSweeper{deletedCount: 5}
	job := NewSweepJob(mock, nil, logger)

	err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if mock.calls() != 1 {
		t.Fatalf("DeleteExpired の呼び出し回数 = %d, want 1", mock.calls())
	}
}

func TestSweepJob_Run_LogsDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockSweeper{deletedCount: 42}
	job := NewSweepJob(mock, nil, logger)

	_ = job.Run(context.Background())

	// ログ出力に削除件数が含まれること
	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	found := false
	for _, line := range lines {
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if count, ok := entry["deleted_count"]; ok {
			if count == float64(42) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Errorf("ログに deleted_count=42 が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestSweepJob_Run_RecordsMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	metrics := &recordingSweepMetrics{}
	job := NewSweepJob(&mockSweeper{deletedCount: 7}, metrics, logger)

	_ = job.Run(context.Background())

	if len(metrics.swept) != 1 || metrics.swept[0] != 7 {
		t.Errorf("swept = %v, want [7]", metrics.swept)
	}
}

func TestSweepJob_Run_NilMetricsIsSafe(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	job := NewSweepJob(&mockSweeper{deletedCount: 3}, nil, logger)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("metrics が nil でも Run() は成功すべき: %v", err)
	}
}

func TestSweepJob_Run_ReturnsErrorOnStoreFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockSweeper{err: sql.ErrConnDone}
	job := NewSweepJob(mock, nil, logger)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("ストアエラー時に Run() は nil でないエラーを返すべき")
	}

	if !strings.Contains(err.Error(), "sql: connection is already closed") {
		t.Errorf("エラーメッセージが期待と異なる: %v", err)
	}
}

func TestSweepJob_Run_LogsErrorOnStoreFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockSweeper{err: sql.ErrConnDone}
	job := NewSweepJob(mock, nil, logger)

	_ = job.Run(context.Background())

	logOutput := buf.String()
	if !strings.Contains(logOutput, "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", logOutput)
	}
}

func TestSweepJob_Run_ErrorDoesNotRecordMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	metrics := &recordingSweepMetrics{}
	job := NewSweepJob(&mockSweeper{err: sql.ErrConnDone}, metrics, logger)

	_ = job.Run(context.Background())

	if len(metrics.swept) != 0 {
		t.Errorf("エラー時にメトリクスが記録された: %v", metrics.swept)
	}
}

func TestSweepJob_Run_Idempotent_ZeroRows(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockSweeper{deletedCount: 0}
	job := NewSweepJob(mock, nil, logger)

	// 1回目の実行
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("1回目の Run() がエラーを返した: %v", err)
	}

	// 2回目の実行（冪等性: 削除対象がなくてもエラーにならない）
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("2回目の Run() がエラーを返した: %v", err)
	}
}

func TestSweepJob_Run_LogsExecutionTime(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockSweeper{deletedCount: 3}
	job := NewSweepJob(mock, nil, logger)

	_ = job.Run(context.Background())

	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	found := false
	for _, line := range lines {
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if _, ok := entry["duration_ms"]; ok {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("ログに duration_ms が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestSweepJob_RunPeriodic_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockSweeper{deletedCount: 1}
	job := NewSweepJob(mock, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		job.RunPeriodic(ctx, time.Hour)
		close(done)
	}()

	// 起動直後の1回目が走るのを待つ
	deadline := time.After(2 * time.Second)
	for mock.calls() == 0 {
		select {
		case <-deadline:
			t.Fatal("初回実行が行われなかった")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("キャンセル後にRunPeriodicが停止しなかった")
	}
}

func TestSweepJob_RunPeriodic_TicksOnInterval(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockSweeper{deletedCount: 0}
	job := NewSweepJob(mock, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go job.RunPeriodic(ctx, 20*time.Millisecond)

	// 初回 + 少なくとも1回のティック
	deadline := time.After(2 * time.Second)
	for mock.calls() < 2 {
		select {
		case <-deadline:
			t.Fatalf("ティック実行が行われなかった（呼び出し回数 = %d）", mock.calls())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
