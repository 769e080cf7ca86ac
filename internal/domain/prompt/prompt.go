// Package prompt renders instruction prompts for the generation step.
// Both builders are pure: identical inputs render byte-identical text.
package prompt

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/medscribe/internal/domain/search/result"
)

// Metadata keys surfaced for each similar case.
const (
	keyDiagnoses = "diagnoses"
	keySpecialty = "specialty"
)

const recommendationPreamble = "Вы - опытный врач. Проанализируйте предоставленный медицинский случай и похожие случаи из базы данных. " +
	"Ваша задача - предоставить рекомендации, основываясь на текущем случае и учитывая опыт похожих случаев.\n\n"

const recommendationInstructions = "\nНа основе предоставленной информации, пожалуйста, составьте структурированные рекомендации, включающие:\n" +
	"1. Рекомендации по лечению, основанные на опыте похожих случаев\n" +
	"2. Рекомендации по профилактике осложнений\n" +
	"3. Рекомендации по образу жизни и реабилитации\n" +
	"4. Особые указания и предостережения\n\n" +
	"Пожалуйста, учитывайте:\n" +
	"- Опыт лечения в похожих случаях\n" +
	"- Возможные осложнения, наблюдавшиеся в похожих случаях\n" +
	"- Успешные методы лечения из похожих случаев\n" +
	"- Индивидуальные особенности текущего случая\n"

// Recommendation renders the target case followed by each similar case, in the given order,
// with its similarity and diagnoses/specialty when present, then the fixed instruction block.
func Recommendation(medicalDoc string, similar []result.Result) string {
	parts := make([]string, 0, 4+3*len(similar)+1)
	parts = append(parts,
		recommendationPreamble,
		"Текущий медицинский случай:\n",
		medicalDoc,
		"\n\nПохожие случаи из базы данных:\n",
	)

	for i := range similar {
		r := &similar[i]
		doc := r.Document()
		parts = append(parts,
			fmt.Sprintf("\nСлучай %d (Схожесть: %.2f):\n", i+1, r.Similarity()),
			fmt.Sprintf("Содержание: %s\n", doc.Content()),
		)
		md := doc.Metadata()
		if d := md.String(keyDiagnoses); d != "" {
			parts = append(parts, "Диагнозы: "+d+"\n")
		}
		if s := md.String(keySpecialty); s != "" {
			parts = append(parts, "Специальность: "+s+"\n")
		}
	}

	parts = append(parts, recommendationInstructions)
	return strings.Join(parts, "\n")
}

// Sections of the structured clinical note, in order.
var transcriptSections = []string{
	"Дата приёма",
	"Имя пациента",
	"Возраст",
	"ФИО врача (если есть)",
	"Жалобы",
	"Цель консультации",
	"Анамнез заболевания",
	"Психический статус",
	"Обоснование диагноза",
	"Клинический диагноз (используй мкб нотацию)",
	`Сопутствующие диагнозы (если не указано — напиши "не выявлено")`,
	"План обследования",
}

// Transcript renders the instruction asking for a fixed-section clinical note from a dialogue.
func Transcript(transcript string) string {
	var b strings.Builder
	b.WriteString("На основе следующего диалога между родителем и врачом составь подробное медицинское заключение " +
		"в стиле психиатрического протокола. Структура документа должна быть следующей:\n\n")
	for i, s := range transcriptSections {
		fmt.Fprintf(&b, "%d. %s  \n", i+1, s)
	}
	b.WriteString("\nПиши в официально-медицинском, нейтральном стиле. Избегай разговорных выражений. " +
		"В каждой части используй информацию строго из диалога, не придумывай. " +
		"Если чего-то нет — пропусти или отметь как \"не указано\".\n\n")
	b.WriteString("Вот диалог:\n")
	b.WriteString(transcript)
	return b.String()
}
