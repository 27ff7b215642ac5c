// Package engine evaluates kerf split scripts. It wraps zygomys in a
// sandboxed environment with builtins that declare source elements and
// split them, and returns the resulting scene.
package engine

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/bsp"
	"github.com/chazu/kerf/pkg/kernel/sdfx"
	"github.com/chazu/kerf/pkg/scene"
	"github.com/chazu/kerf/pkg/split"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a failed split in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Options configures an Engine. Zero fields select defaults.
type Options struct {
	Timeout  time.Duration
	Modeler  kernel.Modeler
	Splitter *split.Splitter
	Logger   *slog.Logger

	// Persister, when set, receives every split the scripts make.
	Persister scene.Persister
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use;
// each call to Evaluate creates a fresh sandbox and a fresh scene.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	timeout  time.Duration
	modeler  kernel.Modeler
	splitter *split.Splitter
	persist  scene.Persister
	logger   *slog.Logger
}

// NewEngine creates a new Engine.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		timeout:  opts.Timeout,
		modeler:  opts.Modeler,
		splitter: opts.Splitter,
		persist:  opts.Persister,
		logger:   opts.Logger,
	}
	if e.timeout <= 0 {
		e.timeout = EvalTimeout
	}
	if e.modeler == nil {
		e.modeler = sdfx.New()
	}
	if e.splitter == nil {
		e.splitter = split.New(bsp.New(), split.Options{})
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Evaluate runs a script and returns the scene it built.
//
// Return semantics:
//   - On success: returns scene + nil errors + nil error
//   - On parse/eval failure: returns nil scene + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*scene.Scene, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		sc, evalErrs, err := e.evaluate(source)
		ch <- evalResult{scene: sc, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, e.timeout, &e.mu, &e.generation)
}

func (e *Engine) newScene() *scene.Scene {
	return scene.New(e.splitter, scene.Options{Persister: e.persist, Logger: e.logger})
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*scene.Scene, []EvalError, error) {
	// Empty source is a valid program that produces an empty scene.
	if strings.TrimSpace(source) == "" {
		return e.newScene(), nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	sc := e.newScene()
	registerBuiltins(env, &session{scene: sc, modeler: e.modeler})

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return sc, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
