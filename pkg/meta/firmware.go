package meta

import(
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/abworrall/rededge-refl/pkg/calerr"
)

// Cameras below this firmware do not embed a radiometric calibration
// model that can be trusted; one has to be supplied from a file.
var MinCalibratedFirmware = FirmwareVersion{Major: 2, Minor: 1, Patch: 0}

type FirmwareVersion struct {
	Major, Minor, Patch int
}

func (v FirmwareVersion)String() string { return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch) }

// ParseFirmwareVersion accepts "major.minor.patch", with an optional single
// non-numeric prefix character ("v2.1.0"). Anything else is ErrParse.
func ParseFirmwareVersion(s string) (FirmwareVersion, error) {
	v := strings.TrimSpace(s)
	if v != "" && !unicode.IsDigit(rune(v[0])) {
		v = v[1:]
	}

	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return FirmwareVersion{}, errors.Wrapf(calerr.ErrParse, "firmware version %q", s)
	}
	nums := [3]int{}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return FirmwareVersion{}, errors.Wrapf(calerr.ErrParse, "firmware version %q, part %q is not a number", s, part)
		}
		nums[i] = n
	}

	return FirmwareVersion{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// SupportsCalibration is major > 2 or (major == 2 and minor >= 1).
func (v FirmwareVersion)SupportsCalibration() bool {
	min := MinCalibratedFirmware
	return v.Major > min.Major || (v.Major == min.Major && v.Minor >= min.Minor)
}

// IsCompatible reports whether the image's in-camera calibration metadata
// can be trusted. A missing or malformed firmware tag is an error, never a
// default.
func IsCompatible(m *Metadata) (bool, error) {
	s, err := m.Firmware()
	if err != nil {
		return false, err
	}
	v, err := ParseFirmwareVersion(s)
	if err != nil {
		return false, errors.Wrap(err, m.Filename)
	}
	return v.SupportsCalibration(), nil
}
