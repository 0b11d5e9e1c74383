// Package cmd는 anymcp CLI의 명령어를 정의합니다.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/insajin/anymcp/internal/config"
	"github.com/insajin/anymcp/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// 전역 플래그
	cfgFile string
	verbose bool

	// 버전 정보 (main에서 주입)
	appVersion   string
	appCommit    string
	appBuildDate string
)

// rootCmd는 CLI의 루트 명령어입니다.
var rootCmd = &cobra.Command{
	Use:   "anymcp",
	Short: "anymcp MCP 서버 매니저 CLI",
	Long: `anymcp는 MCP(Model Context Protocol) 서버의 설치, 실행, 도구 호출을
관리하는 CLI입니다.

docker:// 및 local:// 소스의 MCP 서버를 설치하고, stdio 서브프로세스로
실행하며, 자연어 질의를 적절한 도구 호출로 라우팅합니다.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 로거 초기화
		return initLogger()
	},
}

// Execute는 루트 명령어를 실행합니다.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo는 버전 정보를 설정합니다.
func SetVersionInfo(version, commit, buildDate string) {
	appVersion = version
	appCommit = commit
	appBuildDate = buildDate
}

// GetVersionInfo는 버전 정보를 반환합니다.
func GetVersionInfo() (version, commit, buildDate string) {
	return appVersion, appCommit, appBuildDate
}

func init() {
	cobra.OnInitialize(initConfig)

	// 전역 플래그 정의
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"설정 파일 경로 (기본값: ~/.config/anymcp/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"상세 로그 출력 (debug 레벨)")
}

// initConfig는 설정 파일을 초기화합니다.
// 설정 우선순위: 환경변수 > 설정파일 > 기본값
func initConfig() {
	if cfgFile != "" {
		// 명시적 설정 파일 사용
		viper.SetConfigFile(cfgFile)
	} else {
		// 기본 설정 경로: ~/.config/anymcp/config.yaml
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "홈 디렉토리를 찾을 수 없습니다: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "anymcp")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// 환경변수 자동 바인딩 (ANYMCP_ 접두사)
	viper.SetEnvPrefix("ANYMCP")
	viper.AutomaticEnv()

	// 기본값 설정
	setDefaults()

	// 설정 파일 읽기 (없어도 오류 아님)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// 설정 파일이 있지만 읽기 실패한 경우만 오류
			fmt.Fprintf(os.Stderr, "설정 파일 읽기 실패: %v\n", err)
		}
	}
}

// setDefaults는 기본 설정값을 정의합니다.
func setDefaults() {
	dataDir := config.DataDir()

	// 레지스트리 설정
	viper.SetDefault("registry.path", filepath.Join(dataDir, "mcp_config.yaml"))
	viper.SetDefault("registry.mcp_dir", filepath.Join(dataDir, "mcps"))

	// MCP 연결/호출 설정
	viper.SetDefault("mcp.connect_timeout_sec", 30)
	viper.SetDefault("mcp.call_timeout_sec", 60)

	// 복원력 설정
	viper.SetDefault("resilience.max_attempts", 3)
	viper.SetDefault("resilience.initial_delay_ms", 1000)
	viper.SetDefault("resilience.backoff_multiplier", 2.0)
	viper.SetDefault("resilience.failure_threshold", 5)
	viper.SetDefault("resilience.recovery_timeout_sec", 60)

	// 이벤트 버스 설정 (비어있으면 비활성화)
	viper.SetDefault("bus.url", "")

	// 프로바이더 설정
	viper.SetDefault("providers.default", "claude")
	viper.SetDefault("providers.claude.api_key_env", "ANTHROPIC_API_KEY")
	viper.SetDefault("providers.claude.default_model", "claude-sonnet-4-20250514")
	viper.SetDefault("providers.claude.max_tokens", 4096)
	viper.SetDefault("providers.gemini.api_key_env", "GEMINI_API_KEY")
	viper.SetDefault("providers.gemini.default_model", "gemini-2.0-flash")
	viper.SetDefault("providers.gemini.max_tokens", 4096)

	// 로깅 설정
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.file", "")
}

// initLogger는 로거를 초기화합니다.
func initLogger() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("설정 로드 실패: %w", err)
	}

	// verbose 플래그가 설정되면 debug 레벨로 오버라이드
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger.Setup(cfg.Logging)
	return nil
}

// loadConfig는 설정을 로드하고 검증합니다. 명령 핸들러에서 사용합니다.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
