package lua

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/Shopify/go-lua"
	"github.com/aretw0/livehost/internal/logging"
	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/aretw0/livehost/pkg/module"
	"github.com/aretw0/livehost/pkg/ports"
)

// Builder compiles Lua sources into modules. It implements ports.Builder.
type Builder struct {
	logger *slog.Logger
}

// Option configures the Builder and the modules it creates.
type Option func(*Builder)

// WithLogger sets the logger used by host.log and build events.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates a Lua builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ ports.Builder = (*Builder)(nil)

// buildHookCount is how many VM instructions run between context checks while
// the top level is evaluated.
const buildHookCount = 1000

// Build parses src and evaluates its top level in a scratch state. Syntax and
// runtime errors become diagnostics anchored at the reported line. A missing run
// function is an error; missing pause or resume hooks are warnings.
func (b *Builder) Build(ctx context.Context, src ports.Source) (module.Handle, []diagnostic.Error, error) {
	if err := ctx.Err(); err != nil {
		return module.Handle{}, nil, err
	}

	code := string(src.Code)
	l := lua.NewState()
	lua.OpenLibraries(l)
	registerHost(l, newScratchHost(b.logger, src.Name))

	if err := lua.LoadBuffer(l, code, "@"+src.Name, ""); err != nil {
		return module.Handle{}, []diagnostic.Error{toDiagnostic(src.Name, errorMessage(l, err))}, nil
	}
	// The top level may loop; a count hook aborts it once ctx is done.
	lua.SetDebugHook(l, func(l *lua.State, _ lua.Debug) {
		if ctx.Err() != nil {
			lua.Errorf(l, "build cancelled")
		}
	}, lua.MaskCount, buildHookCount)
	err := l.ProtectedCall(0, 0, 0)
	lua.SetDebugHook(l, nil, 0, 0)
	if cerr := ctx.Err(); cerr != nil {
		return module.Handle{}, nil, cerr
	}
	if err != nil {
		return module.Handle{}, []diagnostic.Error{toDiagnostic(src.Name, errorMessage(l, err))}, nil
	}

	var diags []diagnostic.Error
	top := diagnostic.LineSpan(src.Name, 1)
	if !hasFunction(l, "run") {
		diags = append(diags, diagnostic.Errorf(top, "global function run is not defined"))
	}
	hasPause := hasFunction(l, "pause")
	if !hasPause {
		diags = append(diags, diagnostic.Warningf(top, "global function pause is not defined; pausing only sets host.paused()"))
	}
	hasResume := hasFunction(l, "resume")
	if !hasResume {
		diags = append(diags, diagnostic.Warningf(top, "global function resume is not defined"))
	}
	if diagnostic.HasFatal(diags) {
		return module.Handle{}, diags, nil
	}

	m := &Module{
		name:      src.Name,
		code:      code,
		hasPause:  hasPause,
		hasResume: hasResume,
		logger:    b.logger,
	}
	h, err := module.NewHandle(src.Name, m)
	if err != nil {
		return module.Handle{}, diags, err
	}
	h.Digest = Digest(src.Code)
	b.logger.Debug("Lua module built", "module", src.Name, "digest", h.Digest, "diagnostics", len(diags))
	return h, diags, nil
}

// Digest fingerprints source code for status reporting.
func Digest(code []byte) string {
	sum := sha256.Sum256(code)
	return hex.EncodeToString(sum[:6])
}

func hasFunction(l *lua.State, name string) bool {
	l.Global(name)
	defer l.Pop(1)
	return l.IsFunction(-1)
}

// errorMessage prefers the error object Lua left on the stack.
func errorMessage(l *lua.State, err error) string {
	if l.Top() > 0 {
		if msg, ok := l.ToString(-1); ok && msg != "" {
			l.Pop(1)
			return msg
		}
	}
	return err.Error()
}

var positioned = regexp.MustCompile(`(?s)^(.+?):(\d+): (.*)$`)

// toDiagnostic turns "chunk:line: message" into an error diagnostic.
func toDiagnostic(unit, msg string) diagnostic.Error {
	line := 1
	if m := positioned.FindStringSubmatch(msg); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
			line = n
			msg = m[3]
		}
	}
	return diagnostic.New(diagnostic.KindError, msg, diagnostic.LineSpan(unit, line))
}

// scriptError is a Lua runtime error raised while a module runs.
type scriptError struct {
	diag diagnostic.Error
}

func (e *scriptError) Error() string {
	return e.diag.String()
}

// Diagnostic exposes the error as a diagnostic record.
func (e *scriptError) Diagnostic() diagnostic.Error {
	return e.diag
}

func newScriptError(unit, msg string) error {
	return &scriptError{diag: toDiagnostic(unit, msg)}
}
