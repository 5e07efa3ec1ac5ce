package temporal

import "regexp"

var timeExpr = regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日|\d{4}-\d{1,2}-\d{1,2}|昨天|今天|明天|上周|本周|下周|上个月|这个月|下个月`)

// TimeExpressions returns the explicit dates and relative day/week/month
// words in text, in order of appearance. Digits must be ASCII, so callers
// scan the text before width normalization.
func TimeExpressions(text string) []string {
	return timeExpr.FindAllString(text, -1)
}
