package acpi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// currentValueFile is the leaf file holding an attribute's value within
// its sysfs directory.
const currentValueFile = "current_value"

// attributeFileMode is the permission requested when the kernel creates
// the value file lazily. Writes go through the existing file in practice.
const attributeFileMode = 0o644

// SysfsController reads and writes firmware attributes through the
// kernel's sysfs interface.
//
// Each attribute lives at {root}/{attribute}/current_value and holds a
// decimal integer followed by a newline.
type SysfsController struct {
	root string
}

// NewSysfsController creates a controller rooted at the given sysfs
// directory, typically /sys/devices/platform/slate-acpi.
func NewSysfsController(root string) *SysfsController {
	return &SysfsController{root: root}
}

// Read returns the current value of the named attribute.
func (s *SysfsController) Read(ctx context.Context, attribute string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("acpi read %s: %w", attribute, err)
	}

	path := s.attributePath(attribute)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrAttributeNotFound, attribute)
		}
		return 0, fmt.Errorf("acpi read %s: %w", attribute, err)
	}

	value, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %s contains %q", ErrInvalidValue, attribute, strings.TrimSpace(string(data)))
	}

	return value, nil
}

// Write sets the named attribute to the given value.
func (s *SysfsController) Write(ctx context.Context, attribute string, value int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("acpi write %s: %w", attribute, err)
	}

	path := s.attributePath(attribute)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrAttributeNotFound, attribute)
		}
		return fmt.Errorf("acpi write %s: %w", attribute, err)
	}

	payload := []byte(strconv.Itoa(value) + "\n")
	if err := os.WriteFile(path, payload, attributeFileMode); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrAttributeReadOnly, attribute)
		}
		return fmt.Errorf("acpi write %s: %w", attribute, err)
	}

	return nil
}

// attributePath returns the sysfs path for an attribute's value file.
func (s *SysfsController) attributePath(attribute string) string {
	return filepath.Join(s.root, attribute, currentValueFile)
}
