// Package format renders lookup results and LLM answers as Bengali chat
// text. Every function is pure: the same input always yields the same text.
//
// Missing optional fields render as explicit placeholders so the shape of a
// reply never depends on which fields a dataset row happens to fill in.
package format

import (
	"fmt"
	"strings"

	"github.com/metromate/metromate-linebot-go/internal/dataset"
	"github.com/metromate/metromate-linebot-go/internal/lookup"
)

// Placeholders for missing values.
const (
	UnknownName = "নাম জানা নেই"
	NoInfo      = "তথ্য নেই"
)

// HighlightMarker wraps matched text in bus routes.
const HighlightMarker = "*"

func orName(s string) string { return or(s, UnknownName) }
func orInfo(s string) string { return or(s, NoInfo) }

func or(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

// CurrentClass renders the class running now, or the "no class now" line.
func CurrentClass(r lookup.ClassResult) string {
	if !r.Found {
		return fmt.Sprintf("আজ, **%s** %s এ আপনার (%s) কোনো ক্লাস চলছে না।",
			r.Day.Bengali(), r.At, r.Batch)
	}
	c := r.Class
	var b strings.Builder
	fmt.Fprintf(&b, "✅ **বর্তমানে ক্লাস চলছে (%s):**\n", r.Batch)
	fmt.Fprintf(&b, "কোর্স: %s (%s)\n", orName(c.CourseName), c.CourseCode)
	fmt.Fprintf(&b, "শিক্ষক: %s (%s)\n", orName(c.FacultyName), orInfo(c.FacultyInitial))
	fmt.Fprintf(&b, "রুম: %s\n", orInfo(c.Room))
	fmt.Fprintf(&b, "সময়: %s - %s", c.Start, c.End)
	return b.String()
}

// WeeklyRoutine renders a batch's week. Course names fall back to the code.
func WeeklyRoutine(batch string, week []lookup.DaySchedule) string {
	batch = dataset.Normalize(batch)
	if len(week) == 0 {
		return fmt.Sprintf("দুঃখিত, ব্যাচ **%s** এর কোনো রুটিন পাওয়া যায়নি।", batch)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 **ব্যাচ %s এর সাপ্তাহিক রুটিন**\n", batch)
	for _, day := range week {
		fmt.Fprintf(&b, "\n**--- %s ---**\n", day.Day.Bengali())
		for _, c := range day.Classes {
			fmt.Fprintf(&b, "  🕰️ %s - %s\n", c.Start, c.End)
			fmt.Fprintf(&b, "  📚 %s | রুম: %s | শিক্ষক: %s\n",
				or(c.CourseName, c.CourseCode), orInfo(c.Room), orInfo(c.FacultyInitial))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Course renders a course lookup.
func Course(r lookup.DirectoryResult) string {
	if !r.Found {
		return fmt.Sprintf("দুঃখিত, কোর্স কোড **%s** এর জন্য কোনো তথ্য পাওয়া যায়নি।", r.Query)
	}
	return fmt.Sprintf("📚 **কোর্স পরিচিতি:**\nকোর্স নাম: %s\nকোর্স কোড: %s",
		orName(r.Entry.Name), r.Query)
}

// Faculty renders a faculty lookup.
func Faculty(r lookup.DirectoryResult) string {
	if !r.Found {
		return fmt.Sprintf("দুঃখিত, ইনিশিয়াল **%s** এর জন্য কোনো শিক্ষকের তথ্য পাওয়া যায়নি।", r.Query)
	}
	return fmt.Sprintf("👨‍🏫 **শিক্ষক পরিচিতি:**\nনাম: %s\nইনিশিয়াল: %s",
		orName(r.Entry.Name), r.Query)
}

// CourseUsage is the reply to /course_info without a code.
func CourseUsage() string {
	return "অনুগ্রহ করে কোর্সের কোড দিন। যেমন: /course_info OOP"
}

// FacultyUsage is the reply to /faculty_info_cse without an initial.
func FacultyUsage() string {
	return "অনুগ্রহ করে শিক্ষকের ইনিশিয়াল দিন। যেমন: /faculty_info_cse NIR"
}

// Buses renders a bus lookup. Matches of the query in route details are
// wrapped in HighlightMarker.
func Buses(r lookup.BusResult) string {
	switch r.Status {
	case lookup.BusNoData:
		return "দুঃখিত, বাসের কোনো তথ্য পাওয়া যায়নি।"
	case lookup.BusNoMatch:
		return fmt.Sprintf("দুঃখিত, **%s** রুটের কোনো বাস পাওয়া যায়নি।", r.Query)
	}

	var b strings.Builder
	if r.Status == lookup.BusMatched {
		fmt.Fprintf(&b, "🚌 **%s রুটের বাসের সময়সূচী**\n", r.Query)
	} else {
		b.WriteString("🚌 **বাসের সময়সূচী**\n")
	}
	for _, bus := range r.Entries {
		details := bus.RouteDetails
		if r.Status == lookup.BusMatched {
			details = lookup.Highlight(details, r.Query, HighlightMarker)
		}
		fmt.Fprintf(&b, "\n🚍 বাস নং: %s | %s\n", orInfo(bus.BusNo), orInfo(bus.RouteName))
		fmt.Fprintf(&b, "  রুট: %s\n", orInfo(details))
		fmt.Fprintf(&b, "  ছাড়বে: %s (%s)\n", orInfo(bus.DepartureLocation), orInfo(bus.DepartureTime))
		fmt.Fprintf(&b, "  পৌঁছাবে: %s (%s)\n", orInfo(bus.ArrivalLocation), orInfo(bus.ArrivalTime))
		fmt.Fprintf(&b, "  ধরন: %s\n", orInfo(bus.BusType))
	}
	return strings.TrimRight(b.String(), "\n")
}

// LLMAnswer renders the collaborator's reply. An error becomes a readable
// message instead of a failure.
func LLMAnswer(answer string, err error) string {
	if err != nil {
		return "⚠️ AI ত্রুটি: এই মুহূর্তে উত্তর দেওয়া যাচ্ছে না। একটু পরে আবার চেষ্টা করুন।"
	}
	if strings.TrimSpace(answer) == "" {
		return "দুঃখিত, এই প্রশ্নের কোনো উত্তর পাওয়া যায়নি।"
	}
	return strings.TrimSpace(answer)
}

// RateLimited is the reply when a user exceeds a rate limit.
func RateLimited() string {
	return "⏳ আপনি খুব দ্রুত প্রশ্ন করছেন। একটু পরে আবার চেষ্টা করুন।"
}

// LLMUnavailable is the reply to free text when no LLM provider is configured.
func LLMUnavailable() string {
	return "দুঃখিত, AI সহকারী এখন চালু নেই। নিচের কমান্ডগুলো ব্যবহার করুন:\n\n" + commandList(false)
}

// Unauthorized is the reply to an admin command from a regular user.
func Unauthorized() string {
	return "⛔ এই কমান্ডটি শুধু অ্যাডমিনদের জন্য।"
}

// InternalError is the generic reply when processing fails unexpectedly.
func InternalError() string {
	return "দুঃখিত, একটি সমস্যা হয়েছে। একটু পরে আবার চেষ্টা করুন।"
}

// Start renders the greeting. An empty name greets without one.
func Start(userName string, admin bool) string {
	greeting := "আসসালামু আলাইকুম!"
	if name := strings.TrimSpace(userName); name != "" {
		greeting = fmt.Sprintf("আসসালামু আলাইকুম, %s!", name)
	}
	return greeting + " \nআমি MetroMate. ক্যাম্পাসের প্রয়োজনীয় ইনফো তুমি আমার কাছে থেকে জানতে নিচের কমান্ড ফলো করো।\n\n" +
		"ব্যবহারের জন্য নিচের কমান্ডগুলো ব্যবহার করুন:\n" + commandList(admin)
}

// Help renders the command list.
func Help(admin bool) string {
	return "ব্যবহারের জন্য নিচের কমান্ডগুলো ব্যবহার করুন:\n" + commandList(admin)
}

func commandList(admin bool) string {
	lines := []string{
		"/start - এই মেসেজটি দেখাবে",
		"/class_current [batch] - বর্তমানে কোন ক্লাস চলছে তা জানাবে",
		"/weekly_routine [batch] - আপনার ব্যাচের সাপ্তাহিক রুটিন দেখাবে",
		"/faculty_info_cse <initial> - শিক্ষকের পূর্ণ নাম ও তথ্য জানাবে (যেমন: /faculty_info_cse NIR)",
		"/course_info <code_name> - কোর্সের পূর্ণ নাম ও তথ্য জানাবে (যেমন: /course_info OOP)",
		"/bus [route] - বাসের সময়সূচী জানাবে (যেমন: /bus বা /bus Dhanmondi)",
		"/about_us - বট সম্পর্কে বিস্তারিত জানুন",
	}
	if admin {
		lines = append(lines,
			"",
			"অ্যাডমিন কমান্ড:",
			"/add_course <CODE> <name>",
			"/add_faculty <INITIAL> <name>",
			"/add_routine "+RoutineUsage,
			"/add_bus "+BusUsage,
			"/reload - ডেটা ফাইল আবার লোড করবে",
			"/changes [n] - সাম্প্রতিক পরিবর্তন দেখাবে",
		)
	}
	return strings.Join(lines, "\n")
}

// About renders the /about_us text.
func About() string {
	return "*MetroMate - Your Campus Assistant*\n\n" +
		"MetroMate একটি স্মার্ট বট যা আপনাকে ক্যাম্পাসের দৈনন্দিন প্রয়োজনে সাহায্য করার জন্য তৈরি করা হয়েছে।\n" +
		"এটি আপনাকে ক্লাসের রুটিন, ফ্যাকাল্টি ইনফো এবং বাসের শিডিউল সম্পর্কে তথ্য দিতে পারে।\n\n" +
		"Developed by *Abu Ubayda & Nahidul Islam Rony*\n\n" +
		"Developed with ❤️ for students."
}
