package concept

import (
	"fmt"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/expr"
)

func wantArgs(name string, args []expr.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: %s() takes %d arguments (%d given)", expr.ErrType, name, n, len(args))
	}
	return nil
}

func planArg(name string, args []expr.Value, i int) (*domain.Plan, error) {
	switch p := args[i].(type) {
	case *domain.Plan:
		if p == nil {
			return nil, fmt.Errorf("%w: %s() plan is None", expr.ErrType, name)
		}
		return p, nil
	case domain.Plan:
		return &p, nil
	}
	return nil, fmt.Errorf("%w: %s() expects a plan, got %s", expr.ErrType, name, describe(args[i]))
}

func activityArg(name string, args []expr.Value, i int) (domain.Activity, error) {
	switch a := args[i].(type) {
	case domain.Activity:
		return a, nil
	case *domain.Activity:
		if a != nil {
			return *a, nil
		}
	}
	return domain.Activity{}, fmt.Errorf("%w: %s() expects an activity, got %s", expr.ErrType, name, describe(args[i]))
}

func transportsArg(name string, args []expr.Value, i int) ([]domain.Transport, error) {
	var items []expr.Value
	switch v := args[i].(type) {
	case *expr.List:
		items = v.Items
	case expr.Tuple:
		items = v
	case domain.Transport:
		return []domain.Transport{v}, nil
	default:
		return nil, fmt.Errorf("%w: %s() expects a list of transports, got %s", expr.ErrType, name, describe(args[i]))
	}
	out := make([]domain.Transport, 0, len(items))
	for _, it := range items {
		t, ok := it.(domain.Transport)
		if !ok {
			return nil, fmt.Errorf("%w: %s() expects transports, got %s", expr.ErrType, name, describe(it))
		}
		out = append(out, t)
	}
	return out, nil
}

func stringArg(name string, args []expr.Value, i int) (string, error) {
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s() argument %d must be str, got %s", expr.ErrType, name, i+1, describe(args[i]))
	}
	return s, nil
}

func intArg(name string, args []expr.Value, i int) (int, error) {
	switch n := args[i].(type) {
	case int64:
		return int(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %s() argument %d must be int, got %s", expr.ErrType, name, i+1, describe(args[i]))
}

func describe(v expr.Value) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprintf("%T", v)
}

func activityList(acts []domain.Activity) *expr.List {
	items := make([]expr.Value, len(acts))
	for i, a := range acts {
		items[i] = a
	}
	return expr.NewList(items...)
}

func transportList(ts []domain.Transport) *expr.List {
	items := make([]expr.Value, len(ts))
	for i, t := range ts {
		items[i] = t
	}
	return expr.NewList(items...)
}
