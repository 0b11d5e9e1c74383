// Package updater는 GitHub Releases 기반 CLI 자동 업데이트를 제공합니다.
package updater

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultAPIBase = "https://api.github.com"
	// CheckInterval은 백그라운드 업데이트 확인의 최소 간격입니다.
	CheckInterval = 24 * time.Hour
	httpTimeout   = 30 * time.Second
	lastCheckFile = ".last_update_check"
)

// Release는 GitHub 릴리스 정보입니다.
type Release struct {
	Version     string    `json:"tag_name"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"html_url"`
}

// Asset은 릴리스 첨부 파일 정보입니다.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// Updater는 현재 바이너리의 버전 확인과 교체를 담당합니다.
type Updater struct {
	currentVersion string
	repo           string
	apiBase        string
	stateDir       string
	client         *http.Client
}

// Option은 Updater 생성 옵션입니다.
type Option func(*Updater)

// WithAPIBase는 GitHub API 기본 URL을 교체합니다.
func WithAPIBase(base string) Option {
	return func(u *Updater) { u.apiBase = base }
}

// WithStateDir은 마지막 확인 시각을 저장할 디렉터리를 지정합니다.
func WithStateDir(dir string) Option {
	return func(u *Updater) { u.stateDir = dir }
}

// New는 새로운 Updater를 생성합니다.
// repo는 "owner/name" 형식의 GitHub 저장소 경로입니다.
func New(currentVersion, repo string, opts ...Option) *Updater {
	u := &Updater{
		currentVersion: currentVersion,
		repo:           repo,
		apiBase:        defaultAPIBase,
		client:         &http.Client{Timeout: httpTimeout},
	}
	if home, err := os.UserHomeDir(); err == nil {
		u.stateDir = filepath.Join(home, ".config", "anymcp")
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// CheckForUpdate는 최신 릴리스를 조회하고 업데이트 필요 여부를 반환합니다.
// dev 빌드는 항상 최신으로 취급합니다.
func (u *Updater) CheckForUpdate(ctx context.Context) (*Release, bool, error) {
	release, err := u.fetchLatestRelease(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("최신 릴리스 확인 실패: %w", err)
	}

	if err := u.saveLastCheckTime(); err != nil {
		log.Debug().Err(err).Msg("[updater] 마지막 확인 시각 저장 실패")
	}

	current := normalizeVersion(u.currentVersion)
	if current == "dev" || current == "" {
		return release, false, nil
	}

	hasUpdate := compareVersions(normalizeVersion(release.Version), current) > 0
	return release, hasUpdate, nil
}

// ShouldCheck는 마지막 확인으로부터 CheckInterval이 지났는지 판단합니다.
func (u *Updater) ShouldCheck() bool {
	lastCheck, err := u.loadLastCheckTime()
	if err != nil {
		return true
	}
	return time.Since(lastCheck) >= CheckInterval
}

// DownloadAndReplace는 릴리스 바이너리를 다운로드하고 현재 바이너리를 교체합니다.
// 체크섬 파일이 있으면 SHA256 검증을 수행하고, 교체는 atomic rename으로 합니다.
func (u *Updater) DownloadAndReplace(ctx context.Context, release *Release) error {
	asset, err := findPlatformAsset(release)
	if err != nil {
		return err
	}

	expected, err := u.fetchChecksum(ctx, release, asset.Name)
	if err != nil {
		log.Warn().Err(err).Msg("[updater] 체크섬 파일 없음, 무결성 검증 생략")
	}

	log.Info().
		Str("asset", asset.Name).
		Int64("bytes", asset.Size).
		Msg("[updater] 바이너리 다운로드 시작")

	tmpFile, err := u.downloadAsset(ctx, asset)
	if err != nil {
		return fmt.Errorf("바이너리 다운로드 실패: %w", err)
	}
	defer os.Remove(tmpFile)

	if expected != "" {
		if err := verifyChecksum(tmpFile, expected); err != nil {
			return fmt.Errorf("체크섬 검증 실패: %w", err)
		}
		log.Info().Msg("[updater] 체크섬 검증 완료")
	}

	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("현재 바이너리 경로 확인 실패: %w", err)
	}
	binary, err = filepath.EvalSymlinks(binary)
	if err != nil {
		return fmt.Errorf("심볼릭 링크 해석 실패: %w", err)
	}

	if err := os.Chmod(tmpFile, 0755); err != nil {
		return fmt.Errorf("실행 권한 설정 실패: %w", err)
	}

	backup := binary + ".bak"
	if err := os.Rename(binary, backup); err != nil {
		return fmt.Errorf("기존 바이너리 백업 실패: %w", err)
	}
	if err := os.Rename(tmpFile, binary); err != nil {
		_ = os.Rename(backup, binary)
		return fmt.Errorf("새 바이너리 설치 실패: %w", err)
	}
	_ = os.Remove(backup)

	log.Info().Str("version", release.Version).Msg("[updater] 바이너리 교체 완료")
	return nil
}

func (u *Updater) fetchLatestRelease(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", u.apiBase, u.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", fmt.Sprintf("anymcp/%s", u.currentVersion))

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GitHub API 요청 실패: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("GitHub API 요청 한도 초과, 잠시 후 다시 시도하세요")
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("릴리스를 찾을 수 없음: %s", u.repo)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("GitHub API 응답 오류 (HTTP %d)", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("릴리스 정보 파싱 실패: %w", err)
	}
	return &release, nil
}

// findPlatformAsset은 현재 OS/아키텍처에 맞는 릴리스 에셋을 찾습니다.
func findPlatformAsset(release *Release) (*Asset, error) {
	archAliases := map[string][]string{
		"amd64": {"amd64", "x86_64", "x64"},
		"arm64": {"arm64", "aarch64"},
		"386":   {"386", "i386", "x86"},
	}

	aliases, ok := archAliases[runtime.GOARCH]
	if !ok {
		aliases = []string{runtime.GOARCH}
	}

	for i := range release.Assets {
		asset := &release.Assets[i]
		name := strings.ToLower(asset.Name)

		if !strings.Contains(name, runtime.GOOS) {
			continue
		}
		if strings.HasSuffix(name, ".sha256") || strings.Contains(name, "checksums") {
			continue
		}
		for _, alias := range aliases {
			if strings.Contains(name, alias) {
				return asset, nil
			}
		}
	}
	return nil, fmt.Errorf("현재 플랫폼(%s/%s)에 맞는 바이너리를 찾을 수 없음", runtime.GOOS, runtime.GOARCH)
}

// fetchChecksum은 체크섬 에셋에서 지정 파일의 SHA256 해시를 찾습니다.
func (u *Updater) fetchChecksum(ctx context.Context, release *Release, assetName string) (string, error) {
	var checksumAsset *Asset
	for i := range release.Assets {
		name := strings.ToLower(release.Assets[i].Name)
		if strings.Contains(name, "checksums") || strings.Contains(name, "sha256sums") {
			checksumAsset = &release.Assets[i]
			break
		}
	}
	if checksumAsset == nil {
		return "", fmt.Errorf("체크섬 파일이 릴리스에 없음")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, checksumAsset.BrowserDownloadURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("체크섬 파일 다운로드 실패: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("체크섬 파일 다운로드 실패 (HTTP %d)", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("체크섬 파일 읽기 실패: %w", err)
	}
	return parseChecksum(string(body), assetName)
}

// parseChecksum은 "<hash>  <filename>" 형식의 체크섬 목록에서 해시를 찾습니다.
func parseChecksum(body, assetName string) (string, error) {
	for _, line := range strings.Split(body, "\n") {
		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) < 2 {
			continue
		}
		// 바이너리 모드 표시(*) 제거
		fileName := strings.TrimPrefix(parts[len(parts)-1], "*")
		if fileName == assetName {
			return parts[0], nil
		}
	}
	return "", fmt.Errorf("에셋 %q의 체크섬을 찾을 수 없음", assetName)
}

func (u *Updater) downloadAsset(ctx context.Context, asset *Asset) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.BrowserDownloadURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("다운로드 요청 실패: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("다운로드 실패 (HTTP %d)", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp("", "anymcp-update-*")
	if err != nil {
		return "", fmt.Errorf("임시 파일 생성 실패: %w", err)
	}
	defer tmpFile.Close()

	written, err := io.Copy(tmpFile, resp.Body)
	if err != nil {
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("파일 쓰기 실패: %w", err)
	}
	if written == 0 {
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("다운로드된 파일이 비어있음")
	}
	return tmpFile.Name(), nil
}

// verifyChecksum은 파일의 SHA256 해시를 기대값과 비교합니다.
func verifyChecksum(path, expected string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return err
	}

	actual := hex.EncodeToString(hasher.Sum(nil))
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("체크섬 불일치: 예상 %s, 실제 %s", expected, actual)
	}
	return nil
}

func (u *Updater) saveLastCheckTime() error {
	if u.stateDir == "" {
		return fmt.Errorf("상태 디렉터리가 설정되지 않음")
	}
	if err := os.MkdirAll(u.stateDir, 0700); err != nil {
		return err
	}
	data := []byte(time.Now().Format(time.RFC3339))
	return os.WriteFile(filepath.Join(u.stateDir, lastCheckFile), data, 0600)
}

func (u *Updater) loadLastCheckTime() (time.Time, error) {
	if u.stateDir == "" {
		return time.Time{}, fmt.Errorf("상태 디렉터리가 설정되지 않음")
	}
	data, err := os.ReadFile(filepath.Join(u.stateDir, lastCheckFile))
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
}

// normalizeVersion은 버전 문자열의 'v' 접두사를 제거합니다.
func normalizeVersion(version string) string {
	return strings.TrimPrefix(strings.TrimSpace(version), "v")
}

// compareVersions는 두 semver 버전을 비교합니다.
// a > b이면 1, 같으면 0, a < b이면 -1을 반환합니다.
func compareVersions(a, b string) int {
	aParts := parseVersion(a)
	bParts := parseVersion(b)

	for i := 0; i < 3; i++ {
		if aParts[i] > bParts[i] {
			return 1
		}
		if aParts[i] < bParts[i] {
			return -1
		}
	}
	return 0
}

// parseVersion은 semver 문자열을 [major, minor, patch]로 파싱합니다.
// 프리릴리스 접미사(-beta.1 등)는 무시합니다.
func parseVersion(version string) [3]int {
	var result [3]int

	if idx := strings.IndexByte(version, '-'); idx >= 0 {
		version = version[:idx]
	}

	parts := strings.Split(version, ".")
	for i := 0; i < 3 && i < len(parts); i++ {
		val := 0
		for _, c := range parts[i] {
			if c < '0' || c > '9' {
				break
			}
			val = val*10 + int(c-'0')
		}
		result[i] = val
	}
	return result
}
