package format

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/metromate/metromate-linebot-go/internal/dataset"
	apperrors "github.com/metromate/metromate-linebot-go/internal/errors"
	"github.com/metromate/metromate-linebot-go/internal/storage"
)

// Argument layouts of the pipe-separated admin commands.
const (
	RoutineUsage = "day|batch|start|end|code|room|initial"
	BusUsage     = "no|route|details|from|to|departure|arrival|type"
)

var documentNames = map[dataset.Document]string{
	dataset.DocRoutine: "রুটিন",
	dataset.DocCourses: "কোর্স",
	dataset.DocFaculty: "শিক্ষক",
	dataset.DocBuses:   "বাস",
}

// AddResult renders the outcome of an admin append of doc identified by key.
func AddResult(doc dataset.Document, key string, err error) string {
	name := documentNames[doc]
	var verr *apperrors.ValidationError
	switch {
	case err == nil:
		return fmt.Sprintf("✅ %s **%s** সফলভাবে যোগ করা হয়েছে।", name, key)
	case apperrors.IsDuplicateKey(err):
		return fmt.Sprintf("⚠️ %s **%s** আগে থেকেই আছে। নতুন করে যোগ করা হয়নি।", name, key)
	case errors.As(err, &verr):
		return fmt.Sprintf("❌ ভুল ইনপুট (%s): %s", verr.Field, verr.Message)
	case apperrors.IsPersistence(err):
		return "❌ ডেটা ফাইলে সংরক্ষণ করা যায়নি। কোনো পরিবর্তন করা হয়নি।"
	case apperrors.IsDataUnavailable(err):
		return fmt.Sprintf("❌ %s ফাইলটি পড়া যাচ্ছে না। ফাইল ঠিক করে /reload দিন, তারপর আবার চেষ্টা করুন।", name)
	default:
		return InternalError()
	}
}

// AddUsage renders the argument layout of an admin command.
func AddUsage(command, layout string) string {
	return fmt.Sprintf("ব্যবহার: /%s %s", command, layout)
}

// Reload renders the outcome of /reload.
func Reload(r dataset.LoadReport) string {
	var b strings.Builder
	if r.OK() {
		b.WriteString("🔄 ডেটা আবার লোড হয়েছে।\n")
	} else {
		b.WriteString("⚠️ ডেটা লোড হয়েছে, তবে কিছু ফাইল পড়া যায়নি।\n")
	}
	for _, doc := range dataset.Documents {
		fmt.Fprintf(&b, "%s: %d\n", documentNames[doc], r.Counts[doc])
	}
	if r.Skipped > 0 {
		fmt.Fprintf(&b, "বাদ পড়া রুটিন সারি: %d\n", r.Skipped)
	}
	if r.Duplicates > 0 {
		fmt.Fprintf(&b, "বাদ পড়া ডুপ্লিকেট: %d\n", r.Duplicates)
	}
	for _, err := range r.Unavailable {
		fmt.Fprintf(&b, "❌ %v\n", err)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Changes renders journal entries, newest first, with times shown in loc.
func Changes(entries []storage.Change, loc *time.Location) string {
	if len(entries) == 0 {
		return "কোনো পরিবর্তন পাওয়া যায়নি।"
	}
	var b strings.Builder
	b.WriteString("📝 **সাম্প্রতিক পরিবর্তন**\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%s | %s | %s\n  by %s",
			e.CreatedAt.In(loc).Format("2006-01-02 15:04"), e.Kind, orInfo(e.Key), orInfo(e.UserID))
	}
	return b.String()
}
