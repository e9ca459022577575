package classification

import (
	"github.com/a3tai/mcp-expediente-fusion/internal/catalog"
)

// defaultRelationRules run before type detection. Lower precedence wins
// when a document carries phrases of more than one relation.
func defaultRelationRules() []RelationRule {
	return []RelationRule{
		{
			Name:       "scope_expansion_phrases",
			Relation:   RelationScopeExpansion,
			Precedence: 10,
			Keywords: []string{
				"ampliación", "se amplía", "se amplia", "ampliar la medida",
				"expand the scope", "additionally include", "scope expansion",
			},
			Confidence: 0.80,
		},
		{
			Name:       "clarification_phrases",
			Relation:   RelationClarification,
			Precedence: 20,
			Keywords: []string{
				"aclaración", "se aclara", "rectifica", "fe de erratas",
				"clarification", "correction to", "we clarify",
			},
			Confidence: 0.80,
		},
		{
			Name:       "reminder_phrases",
			Relation:   RelationReminder,
			Precedence: 30,
			Keywords: []string{
				"recordatorio", "reiteración", "se reitera", "insistencia",
				"reminder", "second notice", "follow-up notice",
			},
			Confidence: 0.80,
		},
	}
}

// defaultTypeRules form the precedence chain for new requests. Release
// directives are checked before freeze directives since a release order
// usually quotes the freeze it lifts.
func defaultTypeRules() []Rule {
	return []Rule{
		{
			Name:       "unfreeze_directives",
			Type:       catalog.CodeUnfreeze,
			Precedence: 10,
			Keywords: []string{
				"desbloqueo", "desbloquear", "levantamiento del aseguramiento",
				"levantar el aseguramiento", "liberar los recursos", "liberación de fondos",
				"unfreeze", "unblock", "lift the freeze", "release the funds",
			},
			// patterns run on folded text, so they carry no accents
			KeywordPatterns: []string{
				`\brelease\s+(?:of\s+)?(?:the\s+)?(?:prior\s+|previous\s+|existing\s+|said\s+)?(?:freeze|frozen|block|blocked|seizure)`,
				`\brelease\s+(?:the\s+|all\s+|said\s+)?(?:funds|accounts?|resources|balances?)\b`,
				`\blibera(?:r|cion|ndo|se)?\b.{0,40}(?:asegurad|bloquead|congelad|inmovilizad)`,
			},
			Confidence:  0.80,
			Description: "Orders releasing previously frozen accounts",
		},
		{
			Name:       "transfer_directives",
			Type:       catalog.CodeTransfer,
			Precedence: 20,
			Keywords: []string{
				"transferencia", "transferir", "transfiera",
				"wire transfer", "transfer the funds", "transfer the balance",
			},
			KeywordPatterns: []string{
				`(?:clabe|cuenta)\s+(?:destino|beneficiaria)`,
				`\b(?:shall|must|will|to|hereby|please)\s+transfer\b`,
				`\btransfer(?:red)?\s+(?:the|all|of|said)\b`,
			},
			Confidence:      0.80,
			Description:     "Orders moving funds to a designated account",
		},
		{
			Name:       "funds_placement_directives",
			Type:       catalog.CodeFundsPlacement,
			Precedence: 30,
			Keywords: []string{
				"poner a disposición", "ponga a disposición", "situación de fondos",
				"cheque de caja", "billete de depósito",
				"funds at disposal", "place the funds", "cashier's check",
			},
			Confidence:  0.80,
			Description: "Orders placing funds at the disposal of the authority",
		},
		{
			Name:       "freeze_directives",
			Type:       catalog.CodeFreeze,
			Precedence: 40,
			Keywords: []string{
				"aseguramiento", "asegurar", "asegure", "bloqueo", "bloquear", "inmovilizar",
				"embargo", "freeze", "block the account",
			},
			Confidence:  0.80,
			Description: "Orders freezing accounts or funds",
		},
		{
			Name:       "information_request_directives",
			Type:       catalog.CodeInformationRequest,
			Precedence: 50,
			Keywords: []string{
				"solicita información", "proporcione información", "estados de cuenta",
				"información", "documentación soporte",
				"information request", "account statements", "provide information",
			},
			Confidence:  0.75,
			Description: "Requests for account information or statements",
		},
	}
}

// DefaultRuleSet returns the built-in rules
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Version:     "1.0",
		Description: "Built-in relation and requirement type rules",
		Relations:   defaultRelationRules(),
		Types:       defaultTypeRules(),
	}
}
