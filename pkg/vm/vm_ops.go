package vm

import "fur/runtime-go/pkg/runtime"

// Binary operators pop the right operand first, then the left.
func (t *Thread) popOperands() (runtime.Integer, runtime.Integer, error) {
	right, err := t.popInteger()
	if err != nil {
		return 0, 0, err
	}
	left, err := t.popInteger()
	if err != nil {
		return 0, 0, err
	}
	return left, right, nil
}

func (t *Thread) execArithmetic(op Opcode) error {
	left, right, err := t.popOperands()
	if err != nil {
		return err
	}
	result, err := arithmetic(op, left, right)
	if err != nil {
		return err
	}
	return t.push(result)
}

func (t *Thread) execComparison(op Opcode) error {
	left, right, err := t.popOperands()
	if err != nil {
		return err
	}
	return t.push(compare(op, left, right))
}

// arithmetic wraps on int32 overflow.
func arithmetic(op Opcode, left, right runtime.Integer) (runtime.Integer, error) {
	switch op {
	case OpAdd:
		return left + right, nil
	case OpSub:
		return left - right, nil
	case OpMul:
		return left * right, nil
	case OpIDiv:
		if right == 0 {
			return 0, runtime.NewFault(runtime.FaultDivisionByZero, "integer division by zero")
		}
		return left / right, nil
	case OpMod:
		if right == 0 {
			return 0, runtime.NewFault(runtime.FaultDivisionByZero, "modulo by zero")
		}
		return left % right, nil
	default:
		return 0, runtime.NewFault(runtime.FaultInvalidProgram, "%s is not an arithmetic operation", op)
	}
}

func compare(op Opcode, left, right runtime.Integer) runtime.Boolean {
	switch op {
	case OpLt:
		return left < right
	case OpGt:
		return left > right
	case OpLte:
		return left <= right
	case OpGte:
		return left >= right
	case OpEq:
		return left == right
	case OpNeq:
		return left != right
	default:
		return false
	}
}

// power computes base**exponent by repeated multiplication.
func power(base, exponent runtime.Integer) (runtime.Integer, error) {
	if exponent < 0 {
		return 0, runtime.NewFault(runtime.FaultInvalidArgument, "pow exponent must be non-negative, got %d", exponent)
	}
	result := runtime.Integer(1)
	for ; exponent > 0; exponent-- {
		result *= base
	}
	return result, nil
}
