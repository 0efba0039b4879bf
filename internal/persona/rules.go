package persona

import (
	"fmt"
	"regexp"
	"strings"
)

// ResponseMode selects how the answer is produced.
type ResponseMode string

const (
	// ModeFixed returns a literal localized sentence without invoking the
	// language model.
	ModeFixed ResponseMode = "fixed-reply"

	// ModeSection renders one CV section from the retrieved context, with
	// named fields populated only from context.
	ModeSection ResponseMode = "structured-section"

	// ModePersona answers in the persona's voice, constrained to context.
	ModePersona ResponseMode = "persona"

	// ModeGeneral answers as a neutral assistant and must not draw on the
	// persona's private context.
	ModeGeneral ResponseMode = "general"
)

// Section names one CV section template.
type Section string

const (
	SectionAboutMe    Section = "about-me"
	SectionSkills     Section = "skills"
	SectionExperience Section = "experience"
	SectionProjects   Section = "projects"
	SectionContact    Section = "contact"
	SectionEducation  Section = "education"
)

// matcher decides whether a normalized question triggers a rule.
type matcher interface {
	matches(q string) bool
}

// anyPhrase matches when any phrase occurs as a substring. Phrases carry
// surrounding spaces where a word boundary matters; normalize pads the
// question so boundary phrases match at the edges too.
type anyPhrase []string

func (p anyPhrase) matches(q string) bool {
	for _, phrase := range p {
		if strings.Contains(q, phrase) {
			return true
		}
	}
	return false
}

// allOf matches when every sub-matcher matches.
type allOf []matcher

func (m allOf) matches(q string) bool {
	for _, sub := range m {
		if !sub.matches(q) {
			return false
		}
	}
	return true
}

// anyOf matches when at least one sub-matcher matches.
type anyOf []matcher

func (m anyOf) matches(q string) bool {
	for _, sub := range m {
		if sub.matches(q) {
			return true
		}
	}
	return false
}

// pattern matches a compiled regular expression.
type pattern struct{ re *regexp.Regexp }

func (p pattern) matches(q string) bool { return p.re.MatchString(q) }

// Rule is one entry of the routing table. Rules are static configuration,
// loaded once and read-only at request time.
type Rule struct {
	Name    string
	Mode    ResponseMode
	Section Section

	trigger matcher
	// phrases is the rule's literal trigger set, kept separately from the
	// composed matcher so disjointness can be verified.
	phrases []string
	replies map[Lang]string
	suffix  map[Lang]string
}

// Route is the outcome of classifying one question.
type Route struct {
	Rule    string
	Mode    ResponseMode
	Lang    Lang
	Section Section

	// Reply is the literal answer for ModeFixed, already localized.
	Reply string

	// Suffix is a fixed localized paragraph appended after a rendered
	// section, when the rule defines one.
	Suffix string
}

// numeralNearExperience matches a numeral within a short window of the
// word "experience"/"experiencia", in either order.
var numeralNearExperience = pattern{re: regexp.MustCompile(
	`\d[\wñáéíóú+ ]{0,18}(experience|experiencia)|(experience|experiencia)[\wñáéíóú ]{0,18}\d`)}

// Router evaluates the rule table in declaration order; the first match
// wins.
type Router struct {
	rules []Rule
}

// NewRouter builds the router with the default rule table.
func NewRouter() *Router {
	return &Router{rules: defaultRules()}
}

func defaultRules() []Rule {
	agePhrases := []string{
		" how old ", " your age ", " age are you ", " were you born ",
		" birthdate ", " birth date ", " date of birth ",
		" qué edad ", " que edad ", " edad tienes ",
		" cuántos años tienes ", " cuantos años tienes ",
		" cuándo naciste ", " cuando naciste ", " fecha de nacimiento ",
	}
	experienceTokens := []string{" experience ", " experiencia "}
	durationTokens := []string{
		" years ", " años ", " anos ",
		" how long ", " cuánto tiempo ", " cuanto tiempo ",
	}
	stackPhrases := []string{
		" tech stack ", " technology stack ", " stack tecnológico ", " stack tecnologico ",
		" technologies in your portfolio ", " technologies did you use ",
		" technologies do you use ", " technologies have you used ",
		" qué tecnologías ", " que tecnologias ",
		" tecnologías usas ", " tecnologias usas ",
		" tecnologías de tu portafolio ", " tecnologias de tu portafolio ",
	}
	aboutPhrases := []string{
		" about me ", " about yourself ", " introduce yourself ",
		" sobre ti ", " acerca de ti ", " preséntate ", " presentate ",
	}
	skillsPhrases := []string{
		" skills ", " skill set ", " abilities ",
		" habilidades ", " competencias ",
	}
	experiencePhrases := []string{
		" experience ", " work history ", " employment ", " career ",
		" experiencia ", " trayectoria ",
	}
	projectsPhrases := []string{
		" projects ", " project ", " portfolio ",
		" proyectos ", " proyecto ", " portafolio ",
	}
	contactPhrases := []string{
		" contact ", " email ", " e-mail ", " reach you ", " get in touch ",
		" contacto ", " correo ", " comunicarme ",
	}
	educationPhrases := []string{
		" education ", " studies ", " degree ", " university ",
		" educación ", " educacion ", " estudios ",
		" formación ", " formacion ", " título ", " titulo ",
	}
	identityPhrases := []string{
		" who are you ", " describe yourself ", " tell me about you ",
		" quién eres ", " quien eres ",
		" háblame de ti ", " hablame de ti ",
		" cuéntame de ti ", " cuentame de ti ",
	}

	return []Rule{
		{
			Name:    "age",
			Mode:    ModeFixed,
			trigger: anyPhrase(agePhrases),
			phrases: agePhrases,
			replies: map[Lang]string{
				LangEnglish: "I was born on April 12, 1994.",
				LangSpanish: "Nací el 12 de abril de 1994.",
			},
		},
		{
			Name: "experience-duration",
			Mode: ModeFixed,
			trigger: allOf{
				anyPhrase(experienceTokens),
				anyOf{anyPhrase(durationTokens), numeralNearExperience},
			},
			phrases: durationTokens,
			replies: map[Lang]string{
				LangEnglish: "I have over 8 years of professional experience in software development.",
				LangSpanish: "Tengo más de 8 años de experiencia profesional en desarrollo de software.",
			},
		},
		{
			Name:    "portfolio-tech-stack",
			Mode:    ModeSection,
			Section: SectionSkills,
			trigger: anyPhrase(stackPhrases),
			phrases: stackPhrases,
			suffix: map[Lang]string{
				LangEnglish: "These are the technologies I rely on most across my portfolio projects. I pick each stack for the problem at hand, so the list keeps evolving.",
				LangSpanish: "Estas son las tecnologías que más utilizo en los proyectos de mi portafolio. Elijo cada stack según el problema a resolver, así que la lista sigue evolucionando.",
			},
		},
		{
			Name:    "section-about-me",
			Mode:    ModeSection,
			Section: SectionAboutMe,
			trigger: anyPhrase(aboutPhrases),
			phrases: aboutPhrases,
		},
		{
			Name:    "section-skills",
			Mode:    ModeSection,
			Section: SectionSkills,
			trigger: anyPhrase(skillsPhrases),
			phrases: skillsPhrases,
		},
		{
			Name:    "section-experience",
			Mode:    ModeSection,
			Section: SectionExperience,
			trigger: anyPhrase(experiencePhrases),
			phrases: experiencePhrases,
		},
		{
			Name:    "section-projects",
			Mode:    ModeSection,
			Section: SectionProjects,
			trigger: anyPhrase(projectsPhrases),
			phrases: projectsPhrases,
		},
		{
			Name:    "section-contact",
			Mode:    ModeSection,
			Section: SectionContact,
			trigger: anyPhrase(contactPhrases),
			phrases: contactPhrases,
		},
		{
			Name:    "section-education",
			Mode:    ModeSection,
			Section: SectionEducation,
			trigger: anyPhrase(educationPhrases),
			phrases: educationPhrases,
		},
		{
			Name:    "persona-identity",
			Mode:    ModePersona,
			trigger: anyPhrase(identityPhrases),
			phrases: identityPhrases,
		},
	}
}

// Route classifies a question. The zero-value fallback is the general
// assistant mode: no persona trigger matched.
func (r *Router) Route(question string) Route {
	lang := DetectLanguage(question)
	q := normalize(question)

	for _, rule := range r.rules {
		if !rule.trigger.matches(q) {
			continue
		}
		route := Route{
			Rule:    rule.Name,
			Mode:    rule.Mode,
			Lang:    lang,
			Section: rule.Section,
		}
		if rule.replies != nil {
			route.Reply = rule.replies[lang]
		}
		if rule.suffix != nil {
			route.Suffix = rule.suffix[lang]
		}
		return route
	}

	return Route{Rule: "general", Mode: ModeGeneral, Lang: lang}
}

// CheckDisjoint verifies that no two rules share a literal trigger
// phrase. Overlapping triggers silently resolve by precedence, which is
// how misclassification creeps in; this check keeps the table honest.
func (r *Router) CheckDisjoint() error {
	seen := make(map[string]string)
	for _, rule := range r.rules {
		for _, phrase := range rule.phrases {
			if owner, ok := seen[phrase]; ok && owner != rule.Name {
				return fmt.Errorf("trigger phrase %q shared by rules %q and %q", strings.TrimSpace(phrase), owner, rule.Name)
			}
			seen[phrase] = rule.Name
		}
	}
	return nil
}

// normalize lowercases the question, turns punctuation into spaces,
// collapses runs of whitespace, and pads the ends so boundary-sensitive
// phrases can match anywhere.
func normalize(question string) string {
	q := strings.ToLower(question)
	q = strings.Map(func(r rune) rune {
		switch r {
		case '?', '!', '¿', '¡', '.', ',', ';', ':', '"', '\'', '(', ')':
			return ' '
		}
		return r
	}, q)
	return " " + strings.Join(strings.Fields(q), " ") + " "
}
