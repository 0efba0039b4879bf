package persona

import "strings"

// personaName is the subject of the knowledge base. Every persona-voiced
// answer speaks as this person in the first person.
const personaName = "Diego Vega"

// sectionFields lists the named fields of each CV section. Fields are
// populated only from retrieved context; a field the context cannot fill
// is rendered empty, never guessed.
var sectionFields = map[Section][]string{
	SectionAboutMe:    {"Name", "Title", "Location", "Summary"},
	SectionSkills:     {"Languages", "Frameworks", "Infrastructure", "Tools"},
	SectionExperience: {"Role", "Company", "Period", "Highlights"},
	SectionProjects:   {"Name", "Description", "Technologies", "Link"},
	SectionContact:    {"Email", "LinkedIn", "GitHub", "Website"},
	SectionEducation:  {"Degree", "Institution", "Period"},
}

// sectionTitles maps sections to their localized headings.
var sectionTitles = map[Section]map[Lang]string{
	SectionAboutMe:    {LangEnglish: "About Me", LangSpanish: "Sobre Mí"},
	SectionSkills:     {LangEnglish: "Skills", LangSpanish: "Habilidades"},
	SectionExperience: {LangEnglish: "Experience", LangSpanish: "Experiencia"},
	SectionProjects:   {LangEnglish: "Projects", LangSpanish: "Proyectos"},
	SectionContact:    {LangEnglish: "Contact", LangSpanish: "Contacto"},
	SectionEducation:  {LangEnglish: "Education", LangSpanish: "Educación"},
}

// Directive returns the behavioral instruction for a routed question.
// It is the first element of the model input; fixed-reply routes never
// reach the model and therefore have no directive.
func Directive(route Route) string {
	switch route.Mode {
	case ModeSection:
		return sectionDirective(route)
	case ModePersona:
		return personaDirective(route.Lang)
	case ModeGeneral:
		return generalDirective(route.Lang)
	default:
		return ""
	}
}

func personaDirective(lang Lang) string {
	var b strings.Builder
	b.WriteString("You are " + personaName + ", a software engineer, answering questions about your own CV and portfolio. ")
	b.WriteString("Speak in the first person. Use only facts present in the provided context. ")
	b.WriteString("If the context does not contain the answer, say you do not have that information; never invent facts. ")
	b.WriteString(languageLine(lang))
	return b.String()
}

func sectionDirective(route Route) string {
	title := sectionTitles[route.Section][route.Lang]
	fields := sectionFields[route.Section]

	var b strings.Builder
	b.WriteString(personaDirective(route.Lang))
	b.WriteString("\n\nRender the \"" + title + "\" section of the CV as a structured answer with these fields: ")
	b.WriteString(strings.Join(fields, ", "))
	b.WriteString(". Populate each field exclusively from the provided context. ")
	b.WriteString("Leave a field empty when the context does not supply it; do not guess or fabricate.")
	if route.Suffix != "" {
		b.WriteString("\n\nAfter the section, append exactly this paragraph:\n" + route.Suffix)
	}
	return b.String()
}

func generalDirective(lang Lang) string {
	var b strings.Builder
	b.WriteString("You are a helpful general assistant. ")
	b.WriteString("Answer the question on its own merits. You have no access to " + personaName + "'s personal information and must not claim any. ")
	b.WriteString(languageLine(lang))
	return b.String()
}

func languageLine(lang Lang) string {
	if lang == LangSpanish {
		return "Respond in Spanish, mirroring the language of the question."
	}
	return "Respond in English, mirroring the language of the question."
}
