package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"savings/internal/core"
	"savings/internal/services"
)

// Operation names a projection operation. The same names are used as HTTP
// path suffixes and as worker job kinds.
type Operation string

const (
	OpParse        Operation = "parse"
	OpValidate     Operation = "validator"
	OpFilter       Operation = "filter"
	OpReturnsNPS   Operation = "returns:" + services.NPS
	OpReturnsIndex Operation = "returns:" + services.Index
)

// Service runs the savings operations on API types.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Parse enriches every expense with ceiling and remanent.
func (s *Service) Parse(_ context.Context, items []ExpenseInput) ([]TransactionOutput, error) {
	if err := ValidateExpenses(items); err != nil {
		return nil, err
	}
	return fromTransactions(core.RoundAll(toExpenses(items))), nil
}

// Validate checks caller-supplied transactions for consistency and budget.
func (s *Service) Validate(ctx context.Context, req ValidatorRequest) (PartitionResponse, error) {
	if err := req.Validate(); err != nil {
		return PartitionResponse{}, err
	}
	part := services.ValidateTransactions(ctx, *req.Wage, toTransactions(req.Transactions))
	return fromPartition(part), nil
}

// Filter applies the q, p and k period rules.
func (s *Service) Filter(ctx context.Context, req FilterRequest) (PartitionResponse, error) {
	if err := req.Validate(); err != nil {
		return PartitionResponse{}, err
	}
	part := services.Filter(ctx, services.FilterInput{
		Overrides:   toOverrides(req.Q),
		Additions:   toAdditions(req.P),
		Memberships: toMemberships(req.K),
		Wage:        *req.Wage,
		Expenses:    toExpenses(req.Transactions),
	})
	return fromPartition(part), nil
}

// Returns projects the savings of req invested in the named instrument.
func (s *Service) Returns(ctx context.Context, instrument string, req ReturnsRequest) (ReturnsResponse, error) {
	inst, err := services.GetInstrument(instrument)
	if err != nil {
		return ReturnsResponse{}, fmt.Errorf("%w: %v", ErrUnknownOperation, err)
	}
	if err := req.Validate(); err != nil {
		return ReturnsResponse{}, err
	}
	proj := services.Project(ctx, inst, services.ReturnsInput{
		FilterInput: services.FilterInput{
			Overrides:   toOverrides(req.Q),
			Additions:   toAdditions(req.P),
			Memberships: toMemberships(req.K),
			Wage:        *req.Wage,
			Expenses:    toExpenses(req.Transactions),
		},
		Age:       *req.Age,
		Inflation: *req.Inflation,
	})
	return fromProjection(proj), nil
}

// operationFunc decodes a raw body and runs one operation.
type operationFunc func(ctx context.Context, s *Service, body []byte) (any, error)

// operations maps operation names to their runners.
var operations = map[Operation]operationFunc{
	OpParse: func(ctx context.Context, s *Service, body []byte) (any, error) {
		var items []ExpenseInput
		if err := decode(body, &items); err != nil {
			return nil, err
		}
		return s.Parse(ctx, items)
	},
	OpValidate: func(ctx context.Context, s *Service, body []byte) (any, error) {
		var req ValidatorRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		return s.Validate(ctx, req)
	},
	OpFilter: func(ctx context.Context, s *Service, body []byte) (any, error) {
		var req FilterRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		return s.Filter(ctx, req)
	},
	OpReturnsNPS:   returnsOperation(services.NPS),
	OpReturnsIndex: returnsOperation(services.Index),
}

func returnsOperation(instrument string) operationFunc {
	return func(ctx context.Context, s *Service, body []byte) (any, error) {
		var req ReturnsRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		return s.Returns(ctx, instrument, req)
	}
}

// Do decodes body for op and runs it. Errors are ErrMalformedRequest,
// ErrUnknownOperation or *ValidationError.
func (s *Service) Do(ctx context.Context, op Operation, body []byte) (any, error) {
	run, ok := operations[op]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
	return run(ctx, s, body)
}

// Operations lists every supported operation.
func Operations() []Operation {
	return []Operation{OpParse, OpValidate, OpFilter, OpReturnsNPS, OpReturnsIndex}
}

// ParseOperation maps a job kind or path suffix to an Operation.
func ParseOperation(kind string) (Operation, error) {
	op := Operation(strings.TrimSpace(kind))
	if _, ok := operations[op]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownOperation, kind)
	}
	return op, nil
}

func decode(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: empty body", ErrMalformedRequest)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON value", ErrMalformedRequest)
	}
	return nil
}
