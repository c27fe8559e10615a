package nlu

import (
	"regexp"

	"github.com/medvox/voice-command-gateway/internal/voice"
)

// RE2's \b only knows ASCII word characters, so words that start or end in
// a diacritic are delimited with (?:^|\s) and (?:\s|$) instead.

func romanianRules() []Rule {
	ro := func(name string, cat Category, kind voice.IntentKind, pattern string, params ...ParamExtractor) Rule {
		return Rule{
			Name:     name,
			Language: "ro",
			Category: cat,
			Kind:     kind,
			Pattern:  regexp.MustCompile(`(?i)` + pattern),
			Params:   params,
		}
	}

	return []Rule{
		// Emergency
		ro("ro.emergency", CategoryEmergency, voice.IntentEmergencyAlert,
			`(?:^|\s)(?:urgență|urgenta|alertă|alerta|cod roșu|cod rosu|ajutor)(?:\s|$|[!.,])`),
		ro("ro.stop", CategoryEmergency, voice.IntentStopProcedure,
			`(?:^|\s)(?:stop|oprește|opreste|oprire)(?:\s|$|[!.,])`),

		// Procedural
		ro("ro.torque", CategoryProcedural, voice.IntentSetTorque,
			`(?:^|\s)(?:torque|cuplul|cuplu)(?:\s+(?:la|de|pe))?\s*(\d+(?:[.,]\d+)?)`,
			ParamExtractor{Name: "value", Group: 1, Type: ParamNumber}),
		ro("ro.speed", CategoryProcedural, voice.IntentSetSpeed,
			`(?:^|\s)(?:viteza|viteză|turația|turatia|rpm)(?:\s+(?:la|de|pe))?\s*(\d+(?:[.,]\d+)?)`,
			ParamExtractor{Name: "value", Group: 1, Type: ParamNumber}),
		ro("ro.next_step", CategoryProcedural, voice.IntentNextStep,
			`(?:^|\s)(?:pasul următor|pasul urmator|următorul pas|urmatorul pas|mai departe|continuă|continua)(?:\s|$|[!.,])`),
		ro("ro.start_procedure", CategoryProcedural, voice.IntentStartProcedure,
			`(?:^|\s)(?:începe|incepe|pornește|porneste)\s+(?:procedura\s+(?:de\s+)?)?(.+?)\s*$`,
			ParamExtractor{Name: "procedure", Group: 1, Type: ParamText}),
		ro("ro.note", CategoryProcedural, voice.IntentRecordNote,
			`(?:^|\s)(?:notează|noteaza|notiță|notita)\s*:?\s+(.+?)\s*$`,
			ParamExtractor{Name: "note", Group: 1, Type: ParamText}),

		// Informational
		ro("ro.find_patient", CategoryInformational, voice.IntentFindPatient,
			`(?:^|\s)(?:caută|cauta|găsește|gaseste|arată|arata)\s+(?:pacientul|pacienta|pacient)\s+(.+?)\s*$`,
			ParamExtractor{Name: "patientName", Group: 1, Type: ParamText}),
		ro("ro.patient_history", CategoryInformational, voice.IntentPatientHistory,
			`(?:^|\s)(?:istoricul|istoric|fișa|fisa)(?:\s+(?:medical|medicală|medicala))?\s+(?:pentru\s+|pacientului\s+|pacientei\s+|lui\s+)?(.+?)\s*$`,
			ParamExtractor{Name: "patientName", Group: 1, Type: ParamText}),
		ro("ro.show_schedule", CategoryInformational, voice.IntentShowSchedule,
			`(?:^|\s)(?:programul|programările|programarile|agenda)(?:\s+(?:de|pentru|din))?(?:\s+(azi|astăzi|astazi|mâine|maine|poimâine|poimaine))?(?:\s|$|[?.])`,
			ParamExtractor{Name: "day", Group: 1, Type: ParamText}),
		ro("ro.inventory", CategoryInformational, voice.IntentCheckInventory,
			`(?:^|\s)(?:stocul|stoc|inventarul|inventar)(?:\s+(?:de|pentru|la))?(?:\s+(.+?))?\s*[?]?\s*$`,
			ParamExtractor{Name: "item", Group: 1, Type: ParamText}),
		ro("ro.current_time", CategoryInformational, voice.IntentCurrentTime,
			`(?:cât e ceasul|cat e ceasul|ce oră e|ce ora e|ce oră este|ce ora este)`),

		// Operational
		ro("ro.schedule_appointment", CategoryOperational, voice.IntentScheduleAppointment,
			`(?:^|\s)(?:programează|programeaza|programați|programati|fă o programare|fa o programare)\s+(?:o\s+)?(?:(?:consultație|consultatie|consultația|consultatia|programare|vizită|vizita)\s+)?pentru\s+(.+?)(?:\s+(?:azi|astăzi|astazi|mâine|maine|poimâine|poimaine))?(?:\s+la\s+(?:ora\s+)?(\d{1,2}(?:[:.]\d{2})?))?\s*$`,
			ParamExtractor{Name: "patientName", Group: 1, Type: ParamText},
			ParamExtractor{Name: "time", Group: 2, Type: ParamTime}),
		ro("ro.cancel_appointment", CategoryOperational, voice.IntentCancelAppointment,
			`(?:^|\s)(?:anulează|anuleaza)\s+(?:programarea|consultația|consultatia|vizita)(?:\s+(?:pentru|lui)\s+(.+?))?\s*$`,
			ParamExtractor{Name: "patientName", Group: 1, Type: ParamText}),
		ro("ro.report", CategoryOperational, voice.IntentGenerateReport,
			`(?:^|\s)(?:generează|genereaza|creează|creeaza|fă|fa)\s+(?:un\s+)?(?:raportul|raport)(?:\s+(?:de|pentru|pe)\s+(.+?))?\s*$`,
			ParamExtractor{Name: "period", Group: 1, Type: ParamText}),
		ro("ro.order_supplies", CategoryOperational, voice.IntentOrderSupplies,
			`(?:^|\s)(?:comandă|comanda)\s+(?:(\d+)\s+)?(.+?)\s*$`,
			ParamExtractor{Name: "quantity", Group: 1, Type: ParamNumber},
			ParamExtractor{Name: "item", Group: 2, Type: ParamText}),
	}
}
