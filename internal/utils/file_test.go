package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetFileExtension(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"photo.JPG", "jpg"},
		{"path/to/photo.png", "png"},
		{"archive.tar.gz", "gz"},
		{"noext", ""},
	}

	for _, test := range tests {
		if result := GetFileExtension(test.input); result != test.expected {
			t.Errorf("GetFileExtension(%s) = %s, expected %s", test.input, result, test.expected)
		}
	}
}

func TestIsImageFile(t *testing.T) {
	for _, name := range []string{"a.jpg", "b.JPEG", "c.png", "d.webp", "e.tiff", "f.bmp", "g.gif"} {
		if !IsImageFile(name) {
			t.Errorf("%s should be an image file", name)
		}
	}
	for _, name := range []string{"notes.txt", "photo", "movie.mp4"} {
		if IsImageFile(name) {
			t.Errorf("%s should not be an image file", name)
		}
	}
}

func TestGenerateOutputFilename(t *testing.T) {
	tests := []struct {
		input, suffix, format string
		expected              string
	}{
		{"photo.jpg", "_cropped", "jpg", "out/photo_cropped.jpg"},
		{"path/to/test.image.png", "_cropped", "webp", "out/test.image_cropped.webp"},
		{"https://example.com/img/face.png?size=large", "_cropped", "jpg", "out/face_cropped.jpg"},
		{"data:image/png;base64,AAAA", "_cropped", "jpg", "out/photo_cropped.jpg"},
		{"photo.jpg", "_preview", "", "out/photo_preview.jpg"},
	}

	for _, test := range tests {
		result := GenerateOutputFilename(test.input, "out", test.suffix, test.format)
		if result != filepath.FromSlash(test.expected) {
			t.Errorf("GenerateOutputFilename(%s) = %s, expected %s", test.input, result, test.expected)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"my:photo?", "my_photo_"},
		{" spaced. ", "spaced"},
		{"a<b>c|d", "a_b_c_d"},
	}

	for _, test := range tests {
		if result := SanitizeFilename(test.input); result != test.expected {
			t.Errorf("SanitizeFilename(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size     int64
		expected string
	}{
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}

	for _, test := range tests {
		if result := FormatFileSize(test.size); result != test.expected {
			t.Errorf("FormatFileSize(%d) = %s, expected %s", test.size, result, test.expected)
		}
	}
}

func TestEnsureDirAndFileExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatal(err)
	}
	if FileExists(dir) {
		t.Error("directories should not count as files")
	}

	file := filepath.Join(dir, "x.jpg")
	if FileExists(file) {
		t.Error("file should not exist yet")
	}
	os.WriteFile(file, []byte("x"), 0644)
	if !FileExists(file) {
		t.Error("file should exist")
	}
}
