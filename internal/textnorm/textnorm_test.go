package textnorm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty",
			in:   "  \n \n",
			want: "",
		},
		{
			name: "joins wrapped lines",
			in:   "Press the power\nbutton   for three\nseconds",
			want: "Press the power button for three seconds",
		},
		{
			name: "keeps break after sentence end",
			in:   "Open the cover.\nInsert the SIM card",
			want: "Open the cover.\nInsert the SIM card",
		},
		{
			name: "keeps list items on their own line",
			in:   "Steps\n- charge the battery\n- turn it on\n2. Select a language",
			want: "Steps\n- charge the battery\n- turn it on\n2. Select a language",
		},
		{
			name: "preserves table spacing",
			in:   "Model  Weight  Size\nA1    120 g   5 in",
			want: "Model  Weight  Size\nA1    120 g   5 in",
		},
		{
			name: "paragraph boundaries",
			in:   "first part\n\n\n\nsecond part",
			want: "first part\n\nsecond part",
		},
		{
			name: "thai sentence final word",
			in:   "กดปุ่มเปิดเครื่องค่ะ\nจากนั้นเลือกภาษา",
			want: "กดปุ่มเปิดเครื่องค่ะ\nจากนั้นเลือกภาษา",
		},
		{
			name: "thai repetition mark",
			in:   "ตั้งค่าต่างๆ\nได้ที่เมนู",
			want: "ตั้งค่าต่างๆ\nได้ที่เมนู",
		},
		{
			name: "thai wrapped line joins",
			in:   "เลือกเมนู\nการตั้งค่า",
			want: "เลือกเมนู การตั้งค่า",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Cleanup(tt.in))
		})
	}
}

func TestCleanupIdempotent(t *testing.T) {
	inputs := []string{
		"Press the power\nbutton for three seconds.\nThen   release it\n\n- item one\n- item two",
		"Name    Age    City\nBob     30     LA\nwrapped prose\nline",
		"สารบัญ\nบทที่ 1 ..... 5\nบทที่ 2 ..... 9",
		"1. first\nsecond line continues\n3. third: \nnext",
		"  leading spaces  \n\ttabbed\tline\t",
		"a  b  c\nd\n\n\n> quote\ncontinued",
	}

	for _, in := range inputs {
		once := Cleanup(in)
		assert.Equal(t, once, Cleanup(once), "input %q", in)
	}
}

func TestIsTableLine(t *testing.T) {
	assert.True(t, IsTableLine("Name    Age    City"))
	assert.False(t, IsTableLine("Name    Age"))
	assert.False(t, IsTableLine("a single spaced sentence with words"))
}

func TestLooksLikeTable(t *testing.T) {
	assert.True(t, LooksLikeTable("Name    Age    City\nBob     30     LA\nAnn     29     NY"))

	prose := "The device ships with a charger. Plug it in before first use. " +
		"The indicator turns green when the battery is full."
	assert.False(t, LooksLikeTable(prose))

	sentences := "The device ships with a charger.\nPlug it in before first use.\nThe indicator turns green when full."
	assert.False(t, LooksLikeTable(sentences))

	assert.False(t, LooksLikeTable("a  b  c\nd  e  f"), "needs three non-empty lines")
}

func TestLooksLikeTableConsistentRows(t *testing.T) {
	rows := []string{
		"Model Weight Battery Screen",
		"A10 150g 4000mAh 6.1in",
		"A20 160g 4500mAh 6.4in",
		"A30 170g 5000mAh 6.5in",
		"A40 180g 5000mAh 6.7in",
		"A50 185g 5000mAh 6.7in extra",
	}
	assert.True(t, LooksLikeTable(strings.Join(rows, "\n")))
	assert.False(t, LooksLikeTable(strings.Join(rows[:5], "\n")), "five rows are not enough")
}

func TestTruncate(t *testing.T) {
	thai := "ภาษาไทยอ่านง่าย"
	for n := 0; n <= len(thai)+2; n++ {
		got := Truncate(thai, n)
		assert.LessOrEqual(t, len(got), n)
		assert.True(t, utf8.ValidString(got))
		assert.True(t, strings.HasPrefix(thai, got))
	}
	assert.Equal(t, "abc", Truncate("abc", 80))
	assert.Equal(t, "ภา", Truncate(thai, 7))
}

func TestDetectAndStripFurniture(t *testing.T) {
	pages := []string{
		"ACME Phone Manual\nIntro\na\nb\nc\nPage footer",
		"ACME Phone Manual\nSetup\nd\ne\nf\nPage footer",
		"ACME Phone Manual\nCalls\ng\nh\ni\nPage footer",
		"Different header\nSafety\nj\nk\nl\nPage footer",
		"ACME Phone Manual\nIndex\nm\nn\no\nsomething else",
	}

	f := DetectFurniture(pages)
	assert.Equal(t, []string{"ACME Phone Manual"}, f.Headers)
	assert.Equal(t, []string{"Page footer"}, f.Footers)

	stripped := StripFurniture(pages, f)
	require.Len(t, stripped, len(pages))
	assert.Equal(t, "Intro\na\nb\nc", stripped[0])
	assert.Equal(t, "Different header\nSafety\nj\nk\nl", stripped[3])
	assert.Equal(t, "Index\nm\nn\no\nsomething else", stripped[4])
	assert.Equal(t, "ACME Phone Manual\nIntro\na\nb\nc\nPage footer", pages[0], "input untouched")
}

func TestDetectFurnitureNeedsThreePages(t *testing.T) {
	f := DetectFurniture([]string{"H\nbody", "H\nbody"})
	assert.True(t, f.Empty())
}
