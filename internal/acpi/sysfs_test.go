package acpi

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeAttribute creates a fake sysfs attribute under root.
func writeAttribute(t *testing.T, root, attribute, value string) {
	t.Helper()

	dir := filepath.Join(root, attribute)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, currentValueFile), []byte(value), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestSysfsRead(t *testing.T) {
	root := t.TempDir()
	writeAttribute(t, root, "power_mode", "2\n")

	ctrl := NewSysfsController(root)

	got, err := ctrl.Read(context.Background(), "power_mode")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != 2 {
		t.Errorf("Read() = %d, want 2", got)
	}
}

func TestSysfsRead_MissingAttribute(t *testing.T) {
	ctrl := NewSysfsController(t.TempDir())

	_, err := ctrl.Read(context.Background(), "gpu_mux")
	if !errors.Is(err, ErrAttributeNotFound) {
		t.Errorf("Read() error = %v, want ErrAttributeNotFound", err)
	}
}

func TestSysfsRead_InvalidValue(t *testing.T) {
	root := t.TempDir()
	writeAttribute(t, root, "power_mode", "performance\n")

	ctrl := NewSysfsController(root)

	_, err := ctrl.Read(context.Background(), "power_mode")
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Read() error = %v, want ErrInvalidValue", err)
	}
}

func TestSysfsWrite(t *testing.T) {
	root := t.TempDir()
	writeAttribute(t, root, "keyboard_backlight", "0\n")

	ctrl := NewSysfsController(root)
	ctx := context.Background()

	if err := ctrl.Write(ctx, "keyboard_backlight", 2); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := ctrl.Read(ctx, "keyboard_backlight")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != 2 {
		t.Errorf("Read() after Write() = %d, want 2", got)
	}
}

func TestSysfsWrite_MissingAttribute(t *testing.T) {
	ctrl := NewSysfsController(t.TempDir())

	err := ctrl.Write(context.Background(), "gpu_mux", 1)
	if !errors.Is(err, ErrAttributeNotFound) {
		t.Errorf("Write() error = %v, want ErrAttributeNotFound", err)
	}
}

func TestSysfsRead_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeAttribute(t, root, "power_mode", "1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSysfsController(root).Read(ctx, "power_mode")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
}
