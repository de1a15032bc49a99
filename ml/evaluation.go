package ml

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ClassMetrics holds one row of the classification report.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Evaluation summarizes predictions on a held-out set. Confusion rows are
// true classes, columns predicted classes, both in class id order.
type Evaluation struct {
	Accuracy  float64        `json:"accuracy"`
	Classes   []ClassMetrics `json:"classes"`
	Macro     ClassMetrics   `json:"macro_avg"`
	Weighted  ClassMetrics   `json:"weighted_avg"`
	Confusion [][]int        `json:"confusion_matrix"`
	Support   int            `json:"support"`
}

// Evaluate scores model on the given rows. labelNames supplies the class
// count and the report labels.
func Evaluate(model Classifier, features [][]float64, labels []int, labelNames []string) (*Evaluation, error) {
	if len(features) == 0 {
		return nil, ErrEmptyDataset
	}
	if len(features) != len(labels) {
		return nil, errors.New("features and labels size mismatch")
	}
	predicted, err := PredictBatch(model, features)
	if err != nil {
		return nil, err
	}
	return Score(labels, predicted, labelNames)
}

// Score builds an Evaluation from true and predicted label ids.
func Score(actual, predicted []int, labelNames []string) (*Evaluation, error) {
	if len(actual) != len(predicted) {
		return nil, errors.New("actual and predicted size mismatch")
	}
	if len(actual) == 0 {
		return nil, ErrEmptyDataset
	}
	k := len(labelNames)
	confusion := make([][]int, k)
	for i := range confusion {
		confusion[i] = make([]int, k)
	}
	correct := 0
	for i := range actual {
		a, p := actual[i], predicted[i]
		if a < 0 || a >= k || p < 0 || p >= k {
			return nil, fmt.Errorf("label out of range at row %d: actual=%d predicted=%d", i, a, p)
		}
		confusion[a][p]++
		if a == p {
			correct++
		}
	}

	ev := &Evaluation{
		Accuracy:  float64(correct) / float64(len(actual)),
		Classes:   make([]ClassMetrics, k),
		Confusion: confusion,
		Support:   len(actual),
		Macro:     ClassMetrics{Label: "macro avg"},
		Weighted:  ClassMetrics{Label: "weighted avg"},
	}
	for c := 0; c < k; c++ {
		truePositive := confusion[c][c]
		predictedPositive := 0
		actualPositive := 0
		for j := 0; j < k; j++ {
			predictedPositive += confusion[j][c]
			actualPositive += confusion[c][j]
		}
		m := ClassMetrics{Label: labelNames[c], Support: actualPositive}
		if predictedPositive > 0 {
			m.Precision = float64(truePositive) / float64(predictedPositive)
		}
		if actualPositive > 0 {
			m.Recall = float64(truePositive) / float64(actualPositive)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		ev.Classes[c] = m

		weight := float64(actualPositive) / float64(len(actual))
		ev.Macro.Precision += m.Precision / float64(k)
		ev.Macro.Recall += m.Recall / float64(k)
		ev.Macro.F1 += m.F1 / float64(k)
		ev.Weighted.Precision += m.Precision * weight
		ev.Weighted.Recall += m.Recall * weight
		ev.Weighted.F1 += m.F1 * weight
	}
	ev.Macro.Support = len(actual)
	ev.Weighted.Support = len(actual)
	return ev, nil
}

// Report renders the per-class table printed after training.
func (ev *Evaluation) Report() string {
	width := len("weighted avg")
	for _, c := range ev.Classes {
		if len(c.Label) > width {
			width = len(c.Label)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, c := range ev.Classes {
		writeReportRow(&b, width, c)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", ev.Accuracy, ev.Support)
	writeReportRow(&b, width, ev.Macro)
	writeReportRow(&b, width, ev.Weighted)
	return b.String()
}

func writeReportRow(b *strings.Builder, width int, c ClassMetrics) {
	fmt.Fprintf(b, "%*s %9.2f %9.2f %9.2f %9d\n", width, c.Label, c.Precision, c.Recall, c.F1, c.Support)
}

// ConfusionMatrix renders the confusion counts as an aligned matrix.
func (ev *Evaluation) ConfusionMatrix() string {
	k := len(ev.Confusion)
	if k == 0 {
		return ""
	}
	data := make([]float64, 0, k*k)
	for _, row := range ev.Confusion {
		for _, v := range row {
			data = append(data, float64(v))
		}
	}
	return fmt.Sprintf("%v", mat.Formatted(mat.NewDense(k, k, data), mat.Squeeze()))
}
