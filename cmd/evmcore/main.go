// Command evmcore runs a hex-encoded bytecode string against the
// interpreter and prints the resulting frame state, mirroring the
// standalone bytecode-runner tools shipped alongside production EVM
// implementations.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/garyschulte/metaru/frame"
	"github.com/garyschulte/metaru/internal/evmlog"
	"github.com/garyschulte/metaru/vm"
	"github.com/garyschulte/metaru/vm/runtime"
	"github.com/garyschulte/metaru/vm/tracing"
	"github.com/garyschulte/metaru/word"
)

var log = evmlog.New(evmlog.LvlInfo)

func main() {
	app := &cli.App{
		Name:  "evmcore",
		Usage: "run bytecode against the control-block interpreter",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "code", Usage: "hex-encoded bytecode, 0x prefix optional", Required: true},
			&cli.StringFlag{Name: "input", Usage: "hex-encoded calldata"},
			&cli.Uint64Flag{Name: "gas", Usage: "gas limit", Value: 10_000_000},
			&cli.BoolFlag{Name: "static", Usage: "run as a static (non-mutating) frame"},
			&cli.BoolFlag{Name: "trace", Usage: "log the start and end of each executed opcode"},
			&cli.StringFlag{Name: "unassigned", Usage: "policy for unassigned opcodes: invalid|noop", Value: "invalid"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Bool("trace") {
		log = evmlog.New(evmlog.LvlTrace)
	}

	code, err := decodeHex(c.String("code"))
	if err != nil {
		return fmt.Errorf("decoding --code: %w", err)
	}
	input, err := decodeHex(c.String("input"))
	if err != nil {
		return fmt.Errorf("decoding --input: %w", err)
	}

	policy := vm.PolicyInvalidOperation
	switch strings.ToLower(c.String("unassigned")) {
	case "noop":
		policy = vm.PolicyNoOp
	case "invalid", "":
	default:
		return fmt.Errorf("unknown --unassigned policy %q", c.String("unassigned"))
	}

	cfg := &runtime.Config{
		GasLimit:         c.Uint64("gas"),
		Input:            input,
		IsStatic:         c.Bool("static"),
		UnassignedPolicy: policy,
	}
	if c.Bool("trace") {
		cfg.Tracer = &tracing.Hooks{
			OnOperationStart: func(cb *frame.ControlBlock) {
				log.Trace("op start", "pc", cb.PC(), "gas_remaining", cb.GasRemaining())
			},
			OnOperationEnd: func(cb *frame.ControlBlock, result tracing.OperationResult) {
				log.Trace("op end", "pc", cb.PC(), "gas_cost", result.GasCost)
			},
		}
	}

	result, cb, err := runtime.Execute(code, cfg)
	if err != nil {
		return err
	}

	log.Info("execution finished",
		"state", result.State,
		"halt_reason", result.HaltReason,
		"gas_used", result.GasUsed,
		"gas_refund", result.GasRefund,
		"pc", cb.PC(),
		"stack_size", cb.StackSize(),
	)
	if len(result.Output) > 0 {
		log.Info("output", "hex", hex.EncodeToString(result.Output))
	}
	if size := cb.StackSize(); size > 0 {
		plane := cb.StackPlane()
		top := plane[(size-1)*frame.WordSize : size*frame.WordSize]
		log.Info("stack top", "decimal", word.String(top))
	}
	return nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}
