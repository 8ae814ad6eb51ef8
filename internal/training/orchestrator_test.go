package training

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
)

// stubTrainable emits a scripted sequence of epoch losses and records how
// the orchestrator interacts with it.
type stubTrainable struct {
	epochs  []EpochRecord
	fitErr  error
	stopped bool
	entered chan struct{}
	block   chan struct{}
}

func (s *stubTrainable) Fit(ctx context.Context, train, val Batch, epochs int, onEpoch EpochFunc) error {
	if s.entered != nil {
		close(s.entered)
	}
	if s.block != nil {
		<-s.block
	}
	for _, rec := range s.epochs {
		if s.stopped {
			return nil
		}
		onEpoch(rec.Epoch, rec.TrainLoss, rec.ValLoss)
	}
	return s.fitErr
}

func (s *stubTrainable) Predict(inputs [][][]float64) ([]float64, error) {
	out := make([]float64, len(inputs))
	return out, nil
}

func (s *stubTrainable) Stop() {
	s.stopped = true
}

func testBatch(n int) Batch {
	inputs := make([][][]float64, n)
	targets := make([]float64, n)
	for i := range inputs {
		inputs[i] = [][]float64{{float64(i)}, {float64(i + 1)}}
		targets[i] = float64(i)
	}
	return Batch{Inputs: inputs, Targets: targets}
}

func TestTrainRecordsHistoryInOrder(t *testing.T) {
	stub := &stubTrainable{epochs: []EpochRecord{
		{Epoch: 1, TrainLoss: 0.5, ValLoss: 0.6},
		{Epoch: 2, TrainLoss: 0.4, ValLoss: 0.5},
		{Epoch: 3, TrainLoss: 0.3, ValLoss: 0.4},
	}}
	orch := NewOrchestrator(stub, zerolog.Nop())

	var seen []EpochRecord
	history, err := orch.Train(context.Background(), testBatch(4), testBatch(2), 3, func(rec EpochRecord) {
		seen = append(seen, rec)
	})
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}

	records := history.Records()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec != stub.epochs[i] {
			t.Fatalf("record %d: got %+v want %+v", i, rec, stub.epochs[i])
		}
		if seen[i] != rec {
			t.Fatalf("progress callback %d out of sync: %+v vs %+v", i, seen[i], rec)
		}
	}

	last, ok := history.Last()
	if !ok || last.Epoch != 3 {
		t.Fatalf("unexpected last record: %+v ok=%v", last, ok)
	}
	if got := history.AverageValLoss(); got != 0.5 {
		t.Fatalf("unexpected average val loss: %f", got)
	}
}

func TestTrainCancellationReturnsPartialHistory(t *testing.T) {
	stub := &stubTrainable{epochs: []EpochRecord{
		{Epoch: 1, TrainLoss: 0.5, ValLoss: 0.6},
		{Epoch: 2, TrainLoss: 0.4, ValLoss: 0.5},
		{Epoch: 3, TrainLoss: 0.3, ValLoss: 0.4},
	}}
	orch := NewOrchestrator(stub, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	history, err := orch.Train(ctx, testBatch(4), testBatch(2), 3, func(rec EpochRecord) {
		if rec.Epoch == 2 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("cancellation must not be an error, got %v", err)
	}
	if history.Len() != 2 {
		t.Fatalf("expected 2 completed epochs, got %d", history.Len())
	}
	if !stub.stopped {
		t.Fatal("cancellation must propagate a Stop to the capability")
	}
}

func TestTrainNonFiniteLoss(t *testing.T) {
	stub := &stubTrainable{epochs: []EpochRecord{
		{Epoch: 1, TrainLoss: 0.5, ValLoss: 0.6},
		{Epoch: 2, TrainLoss: math.NaN(), ValLoss: 0.5},
		{Epoch: 3, TrainLoss: 0.3, ValLoss: 0.4},
	}}
	orch := NewOrchestrator(stub, zerolog.Nop())

	history, err := orch.Train(context.Background(), testBatch(4), testBatch(2), 3, nil)
	if !errors.Is(err, ErrTrainingFailed) {
		t.Fatalf("expected ErrTrainingFailed, got %v", err)
	}
	if history.Len() != 1 {
		t.Fatalf("history must hold only the valid epochs, got %d", history.Len())
	}
	if !stub.stopped {
		t.Fatal("divergence must propagate a Stop to the capability")
	}
}

func TestTrainRejectsConcurrentSessions(t *testing.T) {
	stub := &stubTrainable{
		epochs:  []EpochRecord{{Epoch: 1, TrainLoss: 0.1, ValLoss: 0.1}},
		entered: make(chan struct{}),
		block:   make(chan struct{}),
	}
	orch := NewOrchestrator(stub, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := orch.Train(context.Background(), testBatch(4), testBatch(2), 1, nil)
		done <- err
	}()
	<-stub.entered

	if _, err := orch.Train(context.Background(), testBatch(4), testBatch(2), 1, nil); !errors.Is(err, ErrTrainingInProgress) {
		t.Fatalf("expected ErrTrainingInProgress, got %v", err)
	}

	close(stub.block)
	if err := <-done; err != nil {
		t.Fatalf("first session failed: %v", err)
	}
}

func TestTrainWrapsCapabilityError(t *testing.T) {
	stub := &stubTrainable{fitErr: errors.New("boom")}
	orch := NewOrchestrator(stub, zerolog.Nop())

	if _, err := orch.Train(context.Background(), testBatch(4), testBatch(2), 3, nil); !errors.Is(err, ErrTrainingFailed) {
		t.Fatalf("expected ErrTrainingFailed, got %v", err)
	}
}

func TestTrainValidatesInputs(t *testing.T) {
	orch := NewOrchestrator(&stubTrainable{}, zerolog.Nop())

	if _, err := orch.Train(context.Background(), Batch{}, testBatch(2), 3, nil); !errors.Is(err, ErrTrainingFailed) {
		t.Fatalf("empty batch: expected ErrTrainingFailed, got %v", err)
	}
	if _, err := orch.Train(context.Background(), testBatch(4), testBatch(2), 0, nil); !errors.Is(err, ErrTrainingFailed) {
		t.Fatalf("zero epochs: expected ErrTrainingFailed, got %v", err)
	}
}
