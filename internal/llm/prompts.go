package llm

import (
	"strings"

	"github.com/spherical/manual-rag/internal/domain"
)

// HintPlaceholder is replaced by the page's extracted text in hint prompts.
const HintPlaceholder = "{hint_text}"

// PromptSet holds the prompts for one language.
type PromptSet struct {
	FullPage            string
	SingleImage         string
	TableExtraction     string
	HighQuality         string
	HighQualityWithHint string
}

// HighQualityPrompt returns the OCR prompt, embedding hint when it is not empty.
func (p PromptSet) HighQualityPrompt(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return p.HighQuality
	}
	return strings.ReplaceAll(p.HighQualityWithHint, HintPlaceholder, hint)
}

// Prompts returns the prompt set for lang, falling back to Thai.
func Prompts(lang domain.Language) PromptSet {
	if lang == domain.LanguageEnglish {
		return englishPrompts
	}
	return thaiPrompts
}

const thaiOCRRules = `กฎการถอดข้อความ:
1. คัดลอกทุกตัวอักษรตามภาพ ทั้งพยัญชนะ สระ วรรณยุกต์ และตัวเลข
2. คงโครงสร้างเอกสาร: หัวข้อใช้ #/##/### ตามลำดับ รายการใช้ - หรือตัวเลข คั่นย่อหน้าด้วยบรรทัดว่าง
3. แปลงตารางเป็น Markdown Table และใส่หัวคอลัมน์ให้ครบ
4. อธิบายภาพ ไดอะแกรม และภาพหน้าจอเป็นภาษาไทยอย่างละเอียด
5. ส่วนที่อ่านไม่ออกให้เขียนว่า [ไม่ชัดเจน]
6. ห้ามแปลเป็นภาษาอื่น
7. ตอบกลับเป็น Markdown อย่างเดียว ไม่ต้องมีคำอธิบายประกอบ`

const englishOCRRules = `Rules:
1. Transcribe every character as it appears, including numbers, symbols and punctuation
2. Keep the document structure: headings as #/##/###, lists as - or numbers, blank lines between paragraphs
3. Convert tables to Markdown tables with every column header
4. Describe images, diagrams and screenshots in detail
5. Write [unclear] where text cannot be read
6. Reply with Markdown only, without commentary`

var thaiPrompts = PromptSet{
	FullPage: `หน้านี้เป็นส่วนหนึ่งของคู่มือการใช้งานอุปกรณ์มือถือภาษาไทย
กรุณา:
1. คัดลอกข้อความภาษาไทยทุกส่วนบนหน้านี้ให้ครบและถูกต้อง
2. อธิบายภาพ ไดอะแกรม และภาพหน้าจอเป็นภาษาไทยอย่างละเอียด
   เช่น ตำแหน่งปุ่ม องค์ประกอบของหน้าจอ ลูกศร และหมายเลขขั้นตอน
3. จัดผลลัพธ์เป็น Markdown ที่อ่านง่าย มีหัวข้อและขั้นตอนชัดเจน
ห้ามแปลภาษา ให้คงข้อความภาษาไทยไว้ตามต้นฉบับ`,

	SingleImage: `ภาพนี้มาจากคู่มือการใช้งานอุปกรณ์มือถือภาษาไทย
อธิบายสิ่งที่อยู่ในภาพเป็นภาษาไทยอย่างละเอียด เช่น
- ภาพหน้าจอหรือเมนู
- ไดอะแกรมหรือแผนภาพ
- ป้ายชื่อปุ่ม ลูกศร หรือหมายเลขขั้นตอน
- คำแนะนำที่แสดงเป็นภาพ
ถ้ามีข้อความในภาพให้คัดลอกมาด้วย ตอบเป็นย่อหน้าสั้นๆ ภาษาไทย`,

	TableExtraction: `หน้านี้มาจากเอกสาร PDF ภาษาไทยและมีตาราง
กรุณา:
1. คัดลอกข้อความทั้งหมดบนหน้า ทั้งหัวข้อ ย่อหน้า และรายการ
2. แปลงทุกตารางเป็น Markdown Table
   - ใส่หัวคอลัมน์ให้ครบ
   - วางข้อมูลแต่ละเซลล์ให้ตรงคอลัมน์
   - ข้อมูลที่อ่านไม่ชัดให้ใส่ [ไม่ชัดเจน]
3. จัดผลลัพธ์ทั้งหมดเป็น Markdown
ห้ามแปลภาษา ให้คงข้อความภาษาไทยไว้`,

	HighQuality: "คุณคือผู้เชี่ยวชาญการถอดข้อความภาษาไทยจากภาพ (OCR) ถอดข้อความจากภาพหน้าเอกสารนี้ให้แม่นยำที่สุด\n\n" +
		thaiOCRRules,

	HighQualityWithHint: "คุณคือผู้เชี่ยวชาญการถอดข้อความภาษาไทยจากภาพ (OCR) ถอดข้อความจากภาพหน้าเอกสารนี้ให้แม่นยำที่สุด\n\n" +
		"ข้อความด้านล่างสกัดจาก PDF โดยอัตโนมัติและอาจผิดพลาด เช่น ตัวอักษรสลับลำดับ สระลอย หรือวรรณยุกต์หาย " +
		"ใช้เพื่อตรวจคำที่ไม่ชัดเท่านั้น ให้ยึดภาพเป็นหลัก\n\n" +
		"--- ข้อความอ้างอิงจาก PDF ---\n" + HintPlaceholder + "\n--- จบข้อความอ้างอิง ---\n\n" +
		thaiOCRRules,
}

var englishPrompts = PromptSet{
	FullPage: "This page comes from a device manual. " +
		"Transcribe all visible text exactly. " +
		"Describe diagrams, screenshots and illustrations in detail, " +
		"including button positions, UI elements, arrows and step numbers. " +
		"Format the result as clean Markdown with headings and numbered steps.",

	SingleImage: "This image comes from a device manual. " +
		"Describe it in detail: UI screenshots, diagrams, button labels, arrows, " +
		"step indicators or visual instructions. " +
		"Transcribe any text in the image. " +
		"Be specific and technical, and answer in a short paragraph.",

	TableExtraction: `This page comes from a PDF document and contains a table.
Please:
1. Transcribe all text on the page, including headings, paragraphs and lists
2. Convert every table to a Markdown table
   - include all column headers
   - keep each cell in its column
   - write [unclear] for data that cannot be read
3. Format the whole result as Markdown
Keep the original wording.`,

	HighQuality: "You are an expert document OCR system. Transcribe this page image as accurately as possible.\n\n" +
		englishOCRRules,

	HighQualityWithHint: "You are an expert document OCR system. Transcribe this page image as accurately as possible.\n\n" +
		"The reference text below was extracted from the PDF automatically and may contain errors such as " +
		"reordered characters, missing diacritics or garbled words. Use it only to check ambiguous words; " +
		"the image is the primary source.\n\n" +
		"--- Reference text from PDF ---\n" + HintPlaceholder + "\n--- End reference text ---\n\n" +
		englishOCRRules,
}
