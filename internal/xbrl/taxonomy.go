package xbrl

import "strings"

// Category is the business category of an accounting concept.
type Category string

// Categories returned by Classify.
const (
	CategoryRevenue                Category = "Revenue"
	CategoryCurrentAssets          Category = "Current Assets"
	CategoryNonCurrentAssets       Category = "Non-current Assets"
	CategoryTotalAssets            Category = "Total Assets"
	CategoryAssets                 Category = "Assets"
	CategoryCurrentLiabilities     Category = "Current Liabilities"
	CategoryNonCurrentLiabilities  Category = "Non-current Liabilities"
	CategoryTotalLiabilities       Category = "Total Liabilities"
	CategoryLiabilities            Category = "Liabilities"
	CategoryEquity                 Category = "Equity"
	CategoryOperatingIncome        Category = "Operating Income"
	CategoryGrossProfit            Category = "Gross Profit"
	CategoryNetIncome              Category = "Net Income/Profit"
	CategoryOperatingExpenses      Category = "Operating Expenses"
	CategoryCostOfSales            Category = "Cost of Sales"
	CategoryExpenses               Category = "Expenses"
	CategoryCashFlowOperating      Category = "Cash Flow - Operating"
	CategoryCashFlowInvesting      Category = "Cash Flow - Investing"
	CategoryCashFlowFinancing      Category = "Cash Flow - Financing"
	CategoryCashEquivalents        Category = "Cash & Equivalents"
	CategoryInventory              Category = "Inventory"
	CategoryReceivables            Category = "Receivables"
	CategoryPayables               Category = "Payables"
	CategoryDepreciationAmortizing Category = "Depreciation/Amortization"
	CategoryOther                  Category = "Other"
)

// keywordRule matches when the concept contains any keyword and none of the
// exclusions.
type keywordRule struct {
	category Category
	keywords []string
	exclude  []string
}

func (r keywordRule) matches(concept string) bool {
	return containsAny(concept, r.keywords) && !containsAny(concept, r.exclude)
}

// classificationBranch gates a group of rules. The first matching branch
// decides the category: its rules are tried in order, then the fallback.
type classificationBranch struct {
	gate     keywordRule
	rules    []keywordRule
	fallback Category
}

var (
	operatingKeywords   = []string{"operating", "営業", "영업"}
	currentKeywords     = []string{"current", "流動", "유동"}
	nonCurrentKeywords  = []string{"noncurrent", "non-current", "固定", "비유동"}
	totalKeywords       = []string{"total", "合計", "총계"}
	nonCurrentExclusion = []string{"noncurrent", "non-current", "비유동"}
	receivableExclusion = []string{"채권", "債権", "미수"}
)

// classificationBranches is ordered. Expense vocabulary is tested before
// revenue because names such as CostOfSalesRevenue contain both.
var classificationBranches = []classificationBranch{
	{
		gate: keywordRule{keywords: []string{"cost", "expense", "비용", "원가", "原価", "費用", "経費", "販売費"}},
		rules: []keywordRule{
			{category: CategoryOperatingExpenses, keywords: []string{"operating", "selling", "administrative", "販売費", "一般管理費", "営業", "판매비", "관리비", "영업"}},
			{category: CategoryCostOfSales, keywords: []string{"costofsales", "cost of sales", "costofgoods", "costofrevenue", "売上原価", "매출원가"}},
		},
		fallback: CategoryExpenses,
	},
	{
		gate:     keywordRule{keywords: []string{"revenue", "sales", "売上", "営業収益", "매출", "수익"}, exclude: receivableExclusion},
		fallback: CategoryRevenue,
	},
	{
		gate: keywordRule{keywords: []string{"asset", "資産", "자산"}, exclude: []string{"純資産", "棚卸", "재고"}},
		rules: []keywordRule{
			{category: CategoryCurrentAssets, keywords: currentKeywords, exclude: nonCurrentExclusion},
			{category: CategoryNonCurrentAssets, keywords: nonCurrentKeywords},
			{category: CategoryTotalAssets, keywords: totalKeywords},
		},
		fallback: CategoryAssets,
	},
	{
		gate: keywordRule{keywords: []string{"liabilit", "負債", "부채"}},
		rules: []keywordRule{
			{category: CategoryCurrentLiabilities, keywords: currentKeywords, exclude: nonCurrentExclusion},
			{category: CategoryNonCurrentLiabilities, keywords: nonCurrentKeywords},
			{category: CategoryTotalLiabilities, keywords: totalKeywords},
		},
		fallback: CategoryLiabilities,
	},
	{
		gate:     keywordRule{keywords: []string{"equity", "純資産", "資本", "자본"}},
		fallback: CategoryEquity,
	},
	{
		gate: keywordRule{keywords: []string{"income", "profit", "利益", "이익", "손익"}},
		rules: []keywordRule{
			{category: CategoryOperatingIncome, keywords: operatingKeywords},
			{category: CategoryGrossProfit, keywords: []string{"gross", "総利益", "총이익"}},
		},
		fallback: CategoryNetIncome,
	},
	{
		gate: keywordRule{keywords: []string{"cash", "キャッシュ", "現金", "현금"}},
		rules: []keywordRule{
			{category: CategoryCashFlowOperating, keywords: operatingKeywords},
			{category: CategoryCashFlowInvesting, keywords: []string{"investing", "投資", "투자"}},
			{category: CategoryCashFlowFinancing, keywords: []string{"financing", "財務", "재무"}},
		},
		fallback: CategoryCashEquivalents,
	},
	{gate: keywordRule{keywords: []string{"inventor", "棚卸", "재고"}}, fallback: CategoryInventory},
	{gate: keywordRule{keywords: []string{"receivable", "売掛", "債権", "채권", "미수"}}, fallback: CategoryReceivables},
	{gate: keywordRule{keywords: []string{"payable", "買掛", "매입채무", "미지급"}}, fallback: CategoryPayables},
	{gate: keywordRule{keywords: []string{"depreciation", "amortization", "減価償却", "상각"}}, fallback: CategoryDepreciationAmortizing},
}

// Classify maps an accounting concept (English, Japanese or Korean) to a
// business category. Matching is a case-insensitive substring search over
// classificationBranches in order; unmatched concepts are CategoryOther.
func Classify(concept string) Category {
	c := strings.ToLower(concept)
	for _, b := range classificationBranches {
		if !b.gate.matches(c) {
			continue
		}
		for _, r := range b.rules {
			if r.matches(c) {
				return r.category
			}
		}
		return b.fallback
	}
	return CategoryOther
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
