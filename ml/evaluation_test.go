package ml

import (
	"math"
	"strings"
	"testing"
)

func TestScore(t *testing.T) {
	names := []string{"Low", "Medium", "High"}
	actual := []int{0, 0, 1, 1, 2, 2}
	predicted := []int{0, 1, 1, 1, 2, 0}

	ev, err := Score(actual, predicted, names)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(ev.Accuracy-4.0/6.0) > 1e-9 {
		t.Fatalf("unexpected accuracy %v", ev.Accuracy)
	}
	if ev.Confusion[0][1] != 1 || ev.Confusion[2][0] != 1 || ev.Confusion[1][1] != 2 {
		t.Fatalf("unexpected confusion matrix %v", ev.Confusion)
	}
	low := ev.Classes[0]
	if low.Precision != 0.5 || low.Recall != 0.5 || low.Support != 2 {
		t.Fatalf("unexpected Low metrics %+v", low)
	}
	medium := ev.Classes[1]
	if math.Abs(medium.Precision-2.0/3.0) > 1e-9 || medium.Recall != 1 {
		t.Fatalf("unexpected Medium metrics %+v", medium)
	}
	high := ev.Classes[2]
	if high.Precision != 1 || high.Recall != 0.5 {
		t.Fatalf("unexpected High metrics %+v", high)
	}
	wantMacroRecall := (0.5 + 1 + 0.5) / 3
	if math.Abs(ev.Macro.Recall-wantMacroRecall) > 1e-9 {
		t.Fatalf("unexpected macro recall %v", ev.Macro.Recall)
	}
}

func TestScoreRejectsOutOfRangeLabels(t *testing.T) {
	if _, err := Score([]int{0, 3}, []int{0, 0}, []string{"Low", "High"}); err == nil {
		t.Fatal("expected error for label outside the class table")
	}
}

func TestEvaluationRendering(t *testing.T) {
	ev, err := Score([]int{0, 1, 2}, []int{0, 1, 1}, []string{"High", "Low", "Medium"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	report := ev.Report()
	for _, want := range []string{"precision", "High", "Medium", "accuracy", "macro avg", "weighted avg"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
	matrix := ev.ConfusionMatrix()
	if strings.Count(matrix, "\n") != 2 {
		t.Fatalf("expected three matrix lines, got:\n%s", matrix)
	}
}
