package service

import (
	"strings"
)

// minKeywordOverlap минимальная Jaccard-схожесть описаний, при которой они
// считаются совпавшими.
const minKeywordOverlap = 0.5

// minTokenLength токены короче отбрасываются при токенизации описаний.
const minTokenLength = 3

// stopWords служебные и доменные слова, не несущие смысла при сравнении
// описаний. "found" и "lost" исключены отдельно: они встречаются почти в
// каждом описании этой предметной области.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "in": {}, "on": {}, "at": {},
	"and": {}, "or": {}, "to": {}, "for": {}, "of": {}, "with": {},
	"is": {}, "was": {}, "has": {}, "i": {}, "my": {}, "me": {},
	"found": {}, "lost": {},
}

// namesMatch проверяет вхождение одного имени предмета в другое без учёта
// регистра, в любом направлении.
func namesMatch(a, b string) bool {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}

// locationsMatch сравнивает локации точным совпадением после обрезки
// пробелов и приведения к нижнему регистру.
func locationsMatch(a, b string) bool {
	return strings.TrimSpace(strings.ToLower(a)) == strings.TrimSpace(strings.ToLower(b))
}

// descriptionsMatch сравнивает описания по Jaccard-схожести множеств
// токенов. Пустое описание с любой стороны — не совпадение.
func descriptionsMatch(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}

	setA := tokenize(a)
	setB := tokenize(b)

	return jaccard(setA, setB) >= minKeywordOverlap
}

// tokenize приводит текст к нижнему регистру, заменяет не-алфавитноцифровые
// символы пробелами и собирает множество значимых токенов.
func tokenize(text string) map[string]struct{} {
	lowered := strings.ToLower(text)

	var sb strings.Builder
	sb.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteRune(' ')
		}
	}

	tokens := make(map[string]struct{})
	for _, word := range strings.Fields(sb.String()) {
		if len(word) < minTokenLength {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		tokens[word] = struct{}{}
	}

	return tokens
}

// jaccard возвращает |пересечение| / |объединение| двух множеств токенов.
// Для двух пустых множеств возвращает 0.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}
