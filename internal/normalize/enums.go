package normalize

const (
	UnknownText     = "Unknown"
	UnspecifiedText = "Unspecified"
	NoDescription   = "No description provided."
)

var preferenceText = map[int]string{
	1: "Fully Remote",
	2: "Hybrid",
	3: "Temporary Remote",
	4: "Office Only",
}

var typeText = map[int]string{
	1: "Full-time",
	2: "Internship",
	3: "Part-time",
	4: "Freelancer",
	5: "Student",
}

var experienceText = map[int]string{
	1: "No Experience",
	2: "Fresh Graduate/Student",
	3: "<1 Yr Exp",
	4: "1-3 Yrs Exp",
	5: "3-5 Yrs Exp",
	6: "5-10 Yrs Exp",
	7: ">10 Yrs Exp",
}

func PreferenceText(code *int) string {
	return lookup(preferenceText, code, UnknownText)
}

func TypeText(code *int) string {
	return lookup(typeText, code, UnknownText)
}

func ExperienceText(code *int) string {
	return lookup(experienceText, code, UnspecifiedText)
}

func lookup(m map[int]string, code *int, fallback string) string {
	if code == nil {
		return fallback
	}
	if v, ok := m[*code]; ok {
		return v
	}
	return fallback
}
