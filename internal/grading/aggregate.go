package grading

import (
	"math"

	"github.com/mind-engage/mindengage-access/internal/quiz"
)

// Record is the grade reported for a user on a quiz.
type Record struct {
	Value      *float64 `json:"value"` // nil when there is nothing to report
	Overridden bool     `json:"overridden"`
	Feedback   string   `json:"feedback,omitempty"`
	Passed     *bool    `json:"passed,omitempty"`
}

type Input struct {
	Finished      []quiz.Attempt // finished attempts ordered by seq
	Method        quiz.GradeMethod
	DecimalPoints int
	PassGrade     *float64
	Override      *quiz.GradeOverride
}

// methods routes a grade method to its reducer. Scores are never empty.
var methods = map[quiz.GradeMethod]func(scores []float64) float64{
	quiz.GradeHighest: func(s []float64) float64 {
		best := s[0]
		for _, v := range s[1:] {
			best = math.Max(best, v)
		}
		return best
	},
	quiz.GradeAverage: func(s []float64) float64 {
		sum := 0.0
		for _, v := range s {
			sum += v
		}
		return sum / float64(len(s))
	},
	quiz.GradeFirst: func(s []float64) float64 { return s[0] },
	quiz.GradeLast:  func(s []float64) float64 { return s[len(s)-1] },
}

// Aggregate computes the reported grade. An authoritative gradebook override
// wins over anything computed. Otherwise the quiz's grade method is applied
// to finished attempts only, and the result is rounded half-to-even to the
// quiz's decimal points. An empty grade method means highest.
func Aggregate(in Input) Record {
	var rec Record
	if in.Override != nil {
		rec.Feedback = in.Override.Feedback
		if in.Override.Overridden && in.Override.Value != nil {
			v := *in.Override.Value
			rec.Value = &v
			rec.Overridden = true
			rec.Passed = passed(v, in.PassGrade)
			return rec
		}
	}

	scores := make([]float64, 0, len(in.Finished))
	for _, a := range in.Finished {
		if a.State != quiz.StateFinished || a.Score == nil {
			continue
		}
		scores = append(scores, *a.Score)
	}
	if len(scores) == 0 {
		return rec
	}

	method := in.Method
	if method == "" {
		method = quiz.GradeHighest
	}
	reduce, ok := methods[method]
	if !ok {
		return rec
	}
	v := Round(reduce(scores), in.DecimalPoints)
	rec.Value = &v
	rec.Passed = passed(v, in.PassGrade)
	return rec
}

// Round rounds v to dp decimal places, ties to even.
func Round(v float64, dp int) float64 {
	if dp < 0 {
		dp = 0
	}
	p := math.Pow10(dp)
	return math.RoundToEven(v*p) / p
}

func passed(v float64, pass *float64) *bool {
	if pass == nil {
		return nil
	}
	ok := v >= *pass
	return &ok
}
