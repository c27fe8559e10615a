package nlu

import (
	"regexp"

	"github.com/medvox/voice-command-gateway/internal/voice"
)

func englishRules() []Rule {
	en := func(name string, cat Category, kind voice.IntentKind, pattern string, params ...ParamExtractor) Rule {
		return Rule{
			Name:     name,
			Language: "en",
			Category: cat,
			Kind:     kind,
			Pattern:  regexp.MustCompile(`(?i)` + pattern),
			Params:   params,
		}
	}

	return []Rule{
		// Emergency
		en("en.emergency", CategoryEmergency, voice.IntentEmergencyAlert,
			`\b(?:emergency|code red|alert|help)\b`),
		en("en.stop", CategoryEmergency, voice.IntentStopProcedure,
			`\b(?:stop|halt|abort)\b`),

		// Procedural
		en("en.torque", CategoryProcedural, voice.IntentSetTorque,
			`\btorque(?:\s+(?:to|at|of))?\s*(\d+(?:[.,]\d+)?)`,
			ParamExtractor{Name: "value", Group: 1, Type: ParamNumber}),
		en("en.speed", CategoryProcedural, voice.IntentSetSpeed,
			`\b(?:speed|rpm)(?:\s+(?:to|at|of))?\s*(\d+(?:[.,]\d+)?)`,
			ParamExtractor{Name: "value", Group: 1, Type: ParamNumber}),
		en("en.next_step", CategoryProcedural, voice.IntentNextStep,
			`\b(?:next step|go on|continue|proceed)\b`),
		en("en.start_procedure", CategoryProcedural, voice.IntentStartProcedure,
			`\b(?:start|begin)\s+(?:the\s+)?(?:procedure\s+)?(.+?)\s*$`,
			ParamExtractor{Name: "procedure", Group: 1, Type: ParamText}),
		en("en.note", CategoryProcedural, voice.IntentRecordNote,
			`\b(?:take a note|note|write down)\s*:?\s+(.+?)\s*$`,
			ParamExtractor{Name: "note", Group: 1, Type: ParamText}),

		// Informational
		en("en.find_patient", CategoryInformational, voice.IntentFindPatient,
			`\b(?:find|search for|look up|show)\s+(?:the\s+)?patient\s+(.+?)\s*$`,
			ParamExtractor{Name: "patientName", Group: 1, Type: ParamText}),
		en("en.patient_history", CategoryInformational, voice.IntentPatientHistory,
			`\b(?:history|record|chart)\s+(?:of|for)\s+(.+?)\s*$`,
			ParamExtractor{Name: "patientName", Group: 1, Type: ParamText}),
		en("en.show_schedule", CategoryInformational, voice.IntentShowSchedule,
			`\b(?:schedule|agenda|appointments)\s+(?:for\s+)?(today|tomorrow)\b|\b(?:show|what is|what's)\s+(?:my\s+|the\s+)?(?:schedule|agenda|appointments)\b(?:\s+for\s+(today|tomorrow)\b)?`,
			ParamExtractor{Name: "day", Group: 1, Type: ParamText},
			ParamExtractor{Name: "day", Group: 2, Type: ParamText}),
		en("en.inventory", CategoryInformational, voice.IntentCheckInventory,
			`\b(?:stock|inventory)(?:\s+(?:of|for))?(?:\s+(.+?))?\s*[?]?\s*$`,
			ParamExtractor{Name: "item", Group: 1, Type: ParamText}),
		en("en.current_time", CategoryInformational, voice.IntentCurrentTime,
			`\bwhat(?:'s| is) the time\b|\bwhat time is it\b`),

		// Operational
		en("en.schedule_appointment", CategoryOperational, voice.IntentScheduleAppointment,
			`\b(?:schedule|book)\s+(?:an?\s+)?(?:(?:appointment|consultation|visit)\s+)?for\s+(.+?)(?:\s+(?:today|tomorrow))?(?:\s+at\s+(\d{1,2}(?:[:.]\d{2})?(?:\s*[ap]\.?m\.?)?))?\s*$`,
			ParamExtractor{Name: "patientName", Group: 1, Type: ParamText},
			ParamExtractor{Name: "time", Group: 2, Type: ParamTime}),
		en("en.cancel_appointment", CategoryOperational, voice.IntentCancelAppointment,
			`\bcancel\s+(?:the\s+)?(?:appointment|consultation|visit)(?:\s+(?:for|of)\s+(.+?))?\s*$`,
			ParamExtractor{Name: "patientName", Group: 1, Type: ParamText}),
		en("en.report", CategoryOperational, voice.IntentGenerateReport,
			`\b(?:generate|create|make)\s+(?:an?\s+|the\s+)?report(?:\s+(?:for|on|of)\s+(.+?))?\s*$`,
			ParamExtractor{Name: "period", Group: 1, Type: ParamText}),
		en("en.order_supplies", CategoryOperational, voice.IntentOrderSupplies,
			`\border\s+(?:(\d+)\s+)?(.+?)\s*$`,
			ParamExtractor{Name: "quantity", Group: 1, Type: ParamNumber},
			ParamExtractor{Name: "item", Group: 2, Type: ParamText}),
	}
}
