package mcp

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// MatchThreshold는 자연어 도구 매칭의 최소 점수입니다.
const MatchThreshold = 0.5

// ToolMatch는 자연어 질의에 매칭된 도구입니다.
type ToolMatch struct {
	Server string
	Tool   ToolDescriptor
	Score  float64
}

// 조회 계열과 수정 계열의 질의 동사 집합입니다.
var (
	readVerbs = []string{"read", "get", "show", "fetch", "list", "view", "open"}
	editVerbs = []string{"edit", "update", "write", "set", "change", "modify"}
)

// verbBoosts는 질의 동사와 도구 이름 키워드의 가산점 규칙입니다.
// 조회 동사는 read/list 키워드 가산점을 둘 다 활성화하므로 중첩될 수 있습니다.
var verbBoosts = []struct {
	verbs    []string
	keywords []string
	boost    float64
}{
	{readVerbs, []string{"read"}, 0.2},
	{readVerbs, []string{"list"}, 0.15},
	{editVerbs, []string{"edit", "write", "update"}, 0.2},
}

// BestToolMatch는 모든 활성 서버의 도구 중 자연어 질의에 가장 잘 맞는 도구를 찾습니다.
// 임계값 미만이면 nil을 반환합니다. 동점은 서버/도구 이름 순으로 결정적입니다.
func BestToolMatch(ctx context.Context, m *Manager, query string) *ToolMatch {
	catalog := m.ListAllTools(ctx)

	servers := make([]string, 0, len(catalog))
	for server := range catalog {
		servers = append(servers, server)
	}
	sort.Strings(servers)

	var best *ToolMatch
	for _, server := range servers {
		for _, tool := range catalog[server] {
			score := scoreTool(query, tool)
			if score < MatchThreshold {
				continue
			}
			if best == nil || score > best.Score {
				best = &ToolMatch{Server: server, Tool: tool, Score: score}
			}
		}
	}
	return best
}

// scoreTool은 질의와 도구의 유사도 점수를 계산합니다.
// 전체 문자열 유사도와 질의 토큰별 최고 유사도를 절반씩 합산하고,
// 접두 일치와 동사 규칙의 가산점을 더합니다.
func scoreTool(query string, tool ToolDescriptor) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	name := strings.ToLower(tool.Name)
	if q == "" || name == "" {
		return 0
	}

	score := 0.5 * similarity(q, name)

	// 3자 이상의 토큰만 의미 있는 신호로 취급합니다.
	tokens := tokenize(q)
	bestToken := 0.0
	for _, tok := range tokens {
		if s := similarity(tok, name); s > bestToken {
			bestToken = s
		}
	}
	score += 0.5 * bestToken

	for _, tok := range tokens {
		if strings.HasPrefix(name, tok) {
			score += 0.15
			break
		}
	}

	for _, rule := range verbBoosts {
		if !containsAny(tokens, rule.verbs) {
			continue
		}
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				score += rule.boost
				break
			}
		}
	}

	return score
}

func tokenize(q string) []string {
	var tokens []string
	for _, tok := range strings.Fields(q) {
		if len(tok) > 2 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func containsAny(tokens, wanted []string) bool {
	for _, tok := range tokens {
		for _, w := range wanted {
			if tok == w {
				return true
			}
		}
	}
	return false
}

// similarity는 두 문자열의 유사도를 0..1로 반환합니다 (공통 부분열 기반).
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}
	return 2 * float64(lcsLen(a, b)) / float64(total)
}

// lcsLen은 최장 공통 부분열의 길이를 계산합니다.
func lcsLen(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

var argPattern = regexp.MustCompile(`(\w+)\s*=\s*("[^"]*"|'[^']*'|\S+)`)

// ExtractArgs는 자연어 질의에서 key=value 쌍을 추출합니다.
// 따옴표로 감싼 값은 따옴표를 제거합니다.
func ExtractArgs(query string) map[string]any {
	args := make(map[string]any)
	for _, match := range argPattern.FindAllStringSubmatch(query, -1) {
		key, value := match[1], match[2]
		value = strings.Trim(value, `"'`)
		args[key] = value
	}
	return args
}

// DescribeCatalog는 활성 서버의 도구 목록을 사람이 읽을 수 있는 텍스트로 요약합니다.
// LLM 시스템 프롬프트에 도구 문맥을 주입할 때 사용합니다.
func DescribeCatalog(ctx context.Context, m *Manager) string {
	catalog := m.ListAllTools(ctx)
	if len(catalog) == 0 {
		return "사용 가능한 도구가 없습니다."
	}

	servers := make([]string, 0, len(catalog))
	for server := range catalog {
		servers = append(servers, server)
	}
	sort.Strings(servers)

	var sb strings.Builder
	for _, server := range servers {
		fmt.Fprintf(&sb, "[%s]\n", server)
		for _, tool := range catalog[server] {
			desc := tool.Description
			if desc == "" {
				desc = "(설명 없음)"
			}
			fmt.Fprintf(&sb, "  - %s: %s\n", tool.Name, desc)
		}
	}
	return sb.String()
}
