// Package calerr holds the error kinds shared by every stage of the
// radiance to reflectance pipeline. Wrap them with errors.Wrapf for
// context, and test for them with errors.Is.
package calerr

import(
	"github.com/pkg/errors"
)

var(
	ErrConfig              = errors.New("config error")                // malformed or missing table / config
	ErrLookup              = errors.New("lookup error")                // unknown band, missing tag
	ErrParse               = errors.New("parse error")                 // version strings, timestamps, numbers
	ErrCalibrationRequired = errors.New("calibration model required")  // old firmware, no override given
	ErrDivision            = errors.New("division error")              // empty or zero-mean panel region
	ErrDegenerateFit       = errors.New("degenerate fit")              // pre and post at the same instant
	ErrAborted             = errors.New("aborted by operator")
)

// Kind returns the sentinel that err wraps, or nil if it wraps none of them.
func Kind(err error) error {
	for _, k := range []error{ErrConfig, ErrLookup, ErrParse, ErrCalibrationRequired, ErrDivision, ErrDegenerateFit, ErrAborted} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
