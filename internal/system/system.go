package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"
)

var audioExtensions = []string{".mp3", ".wav", ".ogg", ".m4a", ".aac", ".flac"}

const wantOpenFiles = 2048

// InitResourceLimits пытается поднять лимит открытых файлов:
// треки держатся открытыми в кэше до конца сессии.
// Лимит, который уже выше, не трогаем.
func InitResourceLimits() (uint64, error) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, fmt.Errorf("getrlimit: %w", err)
	}
	if rLimit.Cur >= wantOpenFiles || rLimit.Cur >= rLimit.Max {
		return uint64(rLimit.Cur), nil
	}

	rLimit.Cur = min(wantOpenFiles, rLimit.Max)
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, fmt.Errorf("setrlimit: %w", err)
	}
	return uint64(rLimit.Cur), nil
}

// FindLatestDeck ищет самый свежий YAML-файл колоды в папке.
func FindLatestDeck(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		name := strings.ToLower(f.Name())
		if f.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no deck files found in %s", dir)
	}

	return latestFile, nil
}

// ListAudio возвращает аудиофайлы папки (без рекурсии), отсортированные по имени.
func ListAudio(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var result []string
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if IsAudio(f.Name()) {
			result = append(result, filepath.Join(dir, f.Name()))
		}
	}
	sort.Strings(result)
	return result, nil
}

func IsAudio(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range audioExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// GetAudioDuration получает длительность аудио через ffprobe
func GetAudioDuration(path string) (time.Duration, error) {
	cmd := exec.Command("ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}
	return parseProbeDuration(string(out))
}

func parseProbeDuration(out string) (time.Duration, error) {
	var seconds float64
	if _, err := fmt.Sscanf(strings.TrimSpace(out), "%f", &seconds); err != nil {
		return 0, fmt.Errorf("parse ffprobe output %q: %w", strings.TrimSpace(out), err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
