package nn

import (
	"fmt"
	"strings"
)

// NewOptimizer maps a config name to an optimizer.
func NewOptimizer(kind string, lr, momentum float64) (Optimizer, error) {
	if lr <= 0 {
		return nil, fmt.Errorf("nn: learning rate must be positive, got %v", lr)
	}
	switch strings.ToLower(kind) {
	case "", "sgd":
		return NewSGD(lr, momentum), nil
	case "adam":
		return NewAdam(lr), nil
	case "adagrad":
		return NewAdaGrad(lr), nil
	}
	return nil, fmt.Errorf("nn: unknown optimizer %q", kind)
}
