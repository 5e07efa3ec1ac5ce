package finance

// Category is a financial subject-matter bucket
type Category string

const (
	MarketPerformance Category = "MARKET_PERFORMANCE"
	FinancialMetrics  Category = "FINANCIAL_METRICS"
	CompanyOperation  Category = "COMPANY_OPERATION"
	MacroEconomy      Category = "MACRO_ECONOMY"
	PolicyRegulation  Category = "POLICY_REGULATION"
)

type categoryTerms struct {
	category Category
	terms    []string
}

// taxonomy is the fixed category table, in classification order.
// Built once at package init and never mutated.
var taxonomy = []categoryTerms{
	{MarketPerformance, []string{
		"股价", "市值", "涨幅", "跌幅", "波动", "行情", "指数", "大盘", "牛市", "熊市",
	}},
	{FinancialMetrics, []string{
		"营收", "利润", "净利", "毛利", "收入", "成本", "费用", "资产", "负债", "现金流",
		"ROE", "ROA", "EPS", "PE", "PB", "市盈率", "市净率", "资产负债率",
	}},
	{CompanyOperation, []string{
		"销售", "产能", "产量", "库存", "研发", "投资", "并购", "重组", "扩张", "收缩",
		"转型", "升级", "创新", "效率", "产业链", "供应链",
	}},
	{MacroEconomy, []string{
		"GDP", "CPI", "PPI", "PMI", "利率", "汇率", "通胀", "通缩", "货币政策", "财政政策",
		"经济增长", "经济衰退", "经济复苏", "贸易战", "贸易摩擦",
	}},
	{PolicyRegulation, []string{
		"政策", "监管", "法规", "条例", "规定", "措施", "整改", "处罚", "合规", "违规",
		"审批", "备案", "许可", "禁止", "限制", "准入", "退出", "监督",
	}},
}

// memberIndex maps term -> category index for CategoryOf
var memberIndex = buildMemberIndex()

func buildMemberIndex() map[string]int {
	idx := make(map[string]int)
	for i, c := range taxonomy {
		for _, term := range c.terms {
			if _, seen := idx[term]; !seen {
				idx[term] = i
			}
		}
	}
	return idx
}

// Categories returns the category names in classification order
func Categories() []Category {
	out := make([]Category, len(taxonomy))
	for i, c := range taxonomy {
		out[i] = c.category
	}
	return out
}

// CategoryTerms returns a copy of the member terms of a category
func CategoryTerms(c Category) []string {
	for _, entry := range taxonomy {
		if entry.category == c {
			out := make([]string, len(entry.terms))
			copy(out, entry.terms)
			return out
		}
	}
	return nil
}

// CategoryOf returns the first category containing term
func CategoryOf(term string) (Category, bool) {
	i, ok := memberIndex[term]
	if !ok {
		return "", false
	}
	return taxonomy[i].category, true
}

// Classify buckets terms by category. Every category is present in the
// result; a term goes to the first category containing it and unknown
// terms are dropped.
func Classify(terms []string) map[Category][]string {
	out := make(map[Category][]string, len(taxonomy))
	for _, c := range taxonomy {
		out[c.category] = []string{}
	}

	for _, term := range terms {
		if c, ok := CategoryOf(term); ok {
			out[c] = append(out[c], term)
		}
	}

	return out
}
