package rules

import "go.uber.org/zap"

// Built-in context-triggered correction tables, one per supported language.
// Order is significant: rules apply in declaration order, single pass.

var polishSpecs = []Spec{
	// Joins: STT splits compound words
	{Pattern: `\bna\s+prawdę` + nonWordBoundary, Replacement: "naprawdę", ContextTail: true,
		Description: "na prawdę -> naprawdę"},
	{Pattern: `\bna\s+przeciwko\b`, Replacement: "naprzeciwko",
		Description: "na przeciwko -> naprzeciwko"},
	{Pattern: `\bpo\s+nad\s+to\b`, Replacement: "ponadto",
		Description: "po nad to -> ponadto"},
	{Pattern: `\bpo\s+mimo\b`, Replacement: "pomimo",
		Description: "po mimo -> pomimo"},
	{Pattern: `\bdla\s+tego\b`, Replacement: "dlatego",
		Description: "dla tego -> dlatego"},
	{Pattern: `\bpo\s+nie\s+waż` + nonWordBoundary, Replacement: "ponieważ", ContextTail: true,
		Description: "po nie waż -> ponieważ"},
	// Splits: STT joins separate words
	{Literal: "napewno", Replacement: "na pewno",
		Description: "napewno -> na pewno"},
	{Literal: "wogóle", Replacement: "w ogóle",
		Description: "wogóle -> w ogóle"},
	{Literal: "narazie", Replacement: "na razie",
		Description: "narazie -> na razie"},
	{Literal: "conajmniej", Replacement: "co najmniej",
		Description: "conajmniej -> co najmniej"},
	{Literal: "poprostu", Replacement: "po prostu",
		Description: "poprostu -> po prostu"},
	{Literal: "przedewszystkim", Replacement: "przede wszystkim",
		Description: "przedewszystkim -> przede wszystkim"},
}

var englishSpecs = []Spec{
	// your + verb/adj -> you're
	{Pattern: `\byour(\s+(?:going|doing|being|making|getting|coming` +
		`|running|saying|looking|trying|giving|taking|having` +
		`|welcome|not|right|wrong)\b)`,
		Replacement: "you're", ContextTail: true,
		Description: "your + verb -> you're"},
	// its + verb/adv -> it's
	{Pattern: `\bits(\s+(?:going|doing|being|getting|making|coming` +
		`|running|not|been|just|about|really|very|always|never` +
		`|still|already|only|also|a|the|so|ok|okay` +
		`|true|possible|impossible|important)\b)`,
		Replacement: "it's", ContextTail: true,
		Description: "its + verb/adv -> it's"},
	// there + verb -> they're
	{Pattern: `\bthere(\s+(?:going|doing|being|making|getting|coming` +
		`|running|saying|looking|trying|giving|playing|telling` +
		`|leaving|taking|having|showing|not|always|never|just` +
		`|really|still|already)\b)`,
		Replacement: "they're", ContextTail: true,
		Description: "there + verb -> they're"},
	// their + verb -> they're
	{Pattern: `\btheir(\s+(?:going|doing|being|making|getting|coming` +
		`|running|saying|looking|trying|giving|playing|telling` +
		`|leaving|taking|having|showing|not|always|never|just` +
		`|really|still|already)\b)`,
		Replacement: "they're", ContextTail: true,
		Description: "their + verb -> they're"},
	// whose + verb -> who's
	{Pattern: `\bwhose(\s+(?:going|doing|being|making|getting|coming` +
		`|running|not|been|there|here)\b)`,
		Replacement: "who's", ContextTail: true,
		Description: "whose + verb -> who's"},
	// weather + clause -> whether
	{Pattern: `\bweather(\s+(?:or|it|you|we|they|he|she|to|not)\b)`,
		Replacement: "whether", ContextTail: true,
		Description: "weather + clause -> whether"},
	// comparative + then -> than
	{Pattern: `\b(more|less|better|worse|bigger|smaller|larger|higher` +
		`|lower|faster|slower|older|younger|harder|easier` +
		`|rather|other)\s+then\b`,
		Replacement: "$1 than",
		Description: "comparative + then -> than"},
	// article/adj + affect -> effect
	{Pattern: `\b(the|an?|no|any|this|that|its|positive|negative)\s+affect\b`,
		Replacement: "$1 effect",
		Description: "article + affect -> effect"},
	// modal/to + effect -> affect
	{Pattern: `\b(will|would|could|can|may|might|to|not)\s+effect\b`,
		Replacement: "$1 affect",
		Description: "modal + effect -> affect"},
	// verb context + loose -> lose
	{Pattern: `\b(to|will|would|could|gonna|might|can|don't|didn't` +
		`|won't|cannot)\s+loose\b`,
		Replacement: "$1 lose",
		Description: "verb context + loose -> lose"},
	// modal + of -> have
	{Pattern: `\b(would|could|should|might|must)\s+of\b`,
		Replacement: "$1 have",
		Description: "modal + of -> have"},
	// alot -> a lot
	{Literal: "alot", Replacement: "a lot",
		Description: "alot -> a lot"},
	// copula + to + adj -> too
	{Pattern: `\b(is|are|was|were|am|be|been)\s+to(\s+(?:big|small` +
		`|large|much|many|few|little|hard|easy|late|early|fast` +
		`|slow|long|short|hot|cold|old|young|good|bad|high|low` +
		`|far|close|loud|quiet|expensive|cheap|difficult|simple)\b)`,
		Replacement: "$1 too$2",
		Description: "copula + to + adj -> too"},
}

// Builtin compiles the built-in rule tables. Call once at startup; the
// returned rules are read-only and safe for concurrent use.
func Builtin(log *zap.Logger) map[string][]*Rule {
	return map[string][]*Rule{
		"pl": CompileAll(polishSpecs, log),
		"en": CompileAll(englishSpecs, log),
	}
}

// SupportedLanguages lists the tags with built-in rule tables.
func SupportedLanguages() []string {
	return []string{"pl", "en"}
}
