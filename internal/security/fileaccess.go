// Package security implements the file-access segment controller: the one
// concrete consumer of the execctx runtime specified in detail. It turns
// readable/writable/listable path patterns into compiled matchers and
// enforces them against the path(s) a wrapped call declares it touches.
package security

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oriys/ctxguard/internal/errs"
	"github.com/oriys/ctxguard/internal/execctx"
	"github.com/oriys/ctxguard/internal/pathmatch"
)

// SegmentName is the well-known segment FileAccessController registers
// under.
const SegmentName = "fileaccess"

// MetricsRecorder receives one observation per enforced access check.
// internal/metrics.Collector satisfies this; it is declared locally so
// security has no compile-time dependency on the metrics package.
type MetricsRecorder interface {
	RecordFileAccessCheck(kind, outcome string)
}

// Options configures the matchers a FileAccessController compiles at
// construction. Each field accepts anything pathmatch.ToMatcher accepts:
// nil, a string, a *regexp.Regexp, or a slice of those. Metrics is
// optional; when set, every enforced check reports to it.
type Options struct {
	Readable any
	Writable any
	Listable any
	Metrics  MetricsRecorder
}

// Descriptor is the per-call request a wrapped call declares: which paths
// it will read, write, or list, plus the fs-style flags/path/mode triple a
// single primitive call (e.g. an open()) might declare instead of the
// read/write/list lists. Every string field may itself be a placeholder
// spec ("{0}" or "{0.key}") resolved against the call's positional
// arguments at OnContext time.
type Descriptor struct {
	Read  []string
	Write []string
	List  []string
	Flags *string
	Path  *string
	Mode  *string
}

// FileAccessController is an execctx.Controller enforcing readable,
// writable, and listable path matchers against the descriptor attached by
// CreateChild. The matchers are immutable and shared between a controller
// and every child CreateChild produces.
type FileAccessController struct {
	readable   pathmatch.Matcher
	writable   pathmatch.Matcher
	listable   pathmatch.Matcher
	metrics    MetricsRecorder
	descriptor *Descriptor
}

var _ execctx.Controller = (*FileAccessController)(nil)

// New compiles opts into a root FileAccessController with no attached
// descriptor. It is installed into a ControllerStack frame and later
// specialised per call via CreateChild.
func New(opts Options) (*FileAccessController, error) {
	readable, err := pathmatch.ToMatcher(opts.Readable)
	if err != nil {
		return nil, err
	}
	writable, err := pathmatch.ToMatcher(opts.Writable)
	if err != nil {
		return nil, err
	}
	listable, err := pathmatch.ToMatcher(opts.Listable)
	if err != nil {
		return nil, err
	}
	return &FileAccessController{readable: readable, writable: writable, listable: listable, metrics: opts.Metrics}, nil
}

// CreateChild returns a new controller sharing this controller's compiled
// matchers, populated with the request descriptor coerced from data.
func (c *FileAccessController) CreateChild(data map[string]any) (execctx.Controller, error) {
	desc, err := coerceDescriptor(data)
	if err != nil {
		return nil, err
	}
	return &FileAccessController{
		readable:   c.readable,
		writable:   c.writable,
		listable:   c.listable,
		metrics:    c.metrics,
		descriptor: desc,
	}, nil
}

// OnContext enforces the descriptor's declared accesses in order: resolve
// and normalise the path, decode flags, decode mode, then check
// list/read/write entries, finally delegating to the wrapped invocation.
func (c *FileAccessController) OnContext(inv execctx.Invocation) (any, error) {
	desc := c.descriptor
	if desc == nil {
		desc = &Descriptor{}
	}
	args := inv.Args()

	var path string
	hasPath := false
	if desc.Path != nil {
		if v, ok := resolvePlaceholder(*desc.Path, args).(string); ok {
			path = pathmatch.NormalizePath(v)
			hasPath = true
		}
	}

	if hasPath {
		if desc.Flags != nil {
			if fv, ok := resolvePlaceholder(*desc.Flags, args).(string); ok {
				wantRead := strings.ContainsAny(fv, "r+")
				wantWrite := strings.ContainsAny(fv, "wa+")
				if wantRead {
					if err := c.require("read", c.readable, path); err != nil {
						return nil, err
					}
				}
				if wantWrite {
					if err := c.require("write", c.writable, path); err != nil {
						return nil, err
					}
				}
			}
		}
		if desc.Mode != nil {
			if mv, ok := resolvePlaceholder(*desc.Mode, args).(string); ok {
				if mode, err := parseMode(mv); err == nil {
					if mode&0o444 != 0 {
						if err := c.require("read", c.readable, path); err != nil {
							return nil, err
						}
					}
					if mode&0o222 != 0 {
						if err := c.require("write", c.writable, path); err != nil {
							return nil, err
						}
					}
				}
			}
		}
	}

	for _, spec := range desc.List {
		if v, ok := resolvePlaceholder(spec, args).(string); ok {
			if err := c.require("list", c.listable, pathmatch.NormalizePath(v)); err != nil {
				return nil, err
			}
		}
	}
	for _, spec := range desc.Read {
		if v, ok := resolvePlaceholder(spec, args).(string); ok {
			if err := c.require("read", c.readable, pathmatch.NormalizePath(v)); err != nil {
				return nil, err
			}
		}
	}
	for _, spec := range desc.Write {
		if v, ok := resolvePlaceholder(spec, args).(string); ok {
			if err := c.require("write", c.writable, pathmatch.NormalizePath(v)); err != nil {
				return nil, err
			}
		}
	}

	return inv.Invoke()
}

func (c *FileAccessController) require(kind string, m pathmatch.Matcher, path string) error {
	if m == nil || !m(path) {
		if c.metrics != nil {
			c.metrics.RecordFileAccessCheck(kind, "deny")
		}
		return errs.NewFileAccessForbidden(path)
	}
	if c.metrics != nil {
		c.metrics.RecordFileAccessCheck(kind, "allow")
	}
	return nil
}

// parseMode parses a Unix-style permission mode string ("644", "0644",
// "0o644") as octal.
func parseMode(s string) (int64, error) {
	s = strings.TrimPrefix(s, "0o")
	return strconv.ParseInt(s, 8, 32)
}

var placeholderIndex = regexp.MustCompile(`^\{(\d+)\}$`)
var placeholderKeyed = regexp.MustCompile(`^\{(\d+)\.([A-Za-z0-9_]+)\}$`)

// resolvePlaceholder resolves a placeholder spec against a call's
// positional arguments: "{N}" returns args[N] (or nil if out of range);
// "{N.key}" returns args[N][key] if args[N] is record-like, else nil;
// anything else is returned unchanged as a literal.
func resolvePlaceholder(spec string, args []any) any {
	if m := placeholderIndex.FindStringSubmatch(spec); m != nil {
		idx, _ := strconv.Atoi(m[1])
		if idx >= 0 && idx < len(args) {
			return args[idx]
		}
		return nil
	}
	if m := placeholderKeyed.FindStringSubmatch(spec); m != nil {
		idx, _ := strconv.Atoi(m[1])
		key := m[2]
		if idx < 0 || idx >= len(args) {
			return nil
		}
		rec, ok := args[idx].(map[string]any)
		if !ok {
			return nil
		}
		return rec[key]
	}
	return spec
}

// coerceDescriptor applies this controller's type taxonomy to a raw
// segment-options map: read/write/list become string lists, flags/path/
// mode become optional strings. Object inputs and non-string array
// elements fail with a type error.
func coerceDescriptor(data map[string]any) (*Descriptor, error) {
	desc := &Descriptor{}
	var err error

	if desc.Read, err = coerceStringList("read", data["read"]); err != nil {
		return nil, err
	}
	if desc.Write, err = coerceStringList("write", data["write"]); err != nil {
		return nil, err
	}
	if desc.List, err = coerceStringList("list", data["list"]); err != nil {
		return nil, err
	}
	if desc.Flags, err = coerceOptString("flags", data["flags"]); err != nil {
		return nil, err
	}
	if desc.Path, err = coerceOptString("path", data["path"]); err != nil {
		return nil, err
	}
	if desc.Mode, err = coerceOptString("mode", data["mode"]); err != nil {
		return nil, err
	}
	return desc, nil
}

func coerceStringList(name string, v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{val}, nil
	case []string:
		return val, nil
	case []any:
		out := make([]string, len(val))
		for i, e := range val {
			s, ok := e.(string)
			if !ok {
				return nil, errs.NewInvalidArgType(fmt.Sprintf("%s[%d]", name, i), e)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, errs.NewInvalidArgType(name, v)
	}
}

func coerceOptString(name string, v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, errs.NewInvalidArgType(name, v)
	}
	return &s, nil
}
