package ctxguard

import (
	"github.com/oriys/ctxguard/internal/pathmatch"
	"github.com/oriys/ctxguard/internal/security"
)

// FileAccessSegment is the well-known segment name the file-access
// controller registers under.
const FileAccessSegment = security.SegmentName

// FileAccessOptions configures a FileAccessController's compiled
// readable/writable/listable matchers. Alias of security.Options.
type FileAccessOptions = security.Options

// NewFileAccessController compiles opts into a root FileAccessController.
func NewFileAccessController(opts FileAccessOptions) (*security.FileAccessController, error) {
	return security.New(opts)
}

// AddFileAccessController attaches a FileAccessController built from opts
// under the well-known "fileaccess" segment name in container, creating
// container if nil, and returns it.
func AddFileAccessController(container map[string]Controller, opts FileAccessOptions) (map[string]Controller, error) {
	ctrl, err := security.New(opts)
	if err != nil {
		return nil, err
	}
	if container == nil {
		container = make(map[string]Controller)
	}
	container[FileAccessSegment] = ctrl
	return container, nil
}

// ToMatcher is the exported path-pattern compilation hook: a literal
// string, a "re:"-prefixed regex, a *regexp.Regexp, or a slice of those.
func ToMatcher(pattern any) (pathmatch.Matcher, error) {
	return pathmatch.ToMatcher(pattern)
}
