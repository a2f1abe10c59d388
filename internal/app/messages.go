/**
 * @description
 * Troll message templates and the rules that select them. Templates use
 * {placeholder} markers filled through strings.Replacer so the pools can be
 * asserted in tests without a random source.
 */

package app

import (
	"math/rand"
	"strings"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/shopspring/decimal"
)

// Picker chooses an index in [0, n). Tests inject a fixed picker.
type Picker interface {
	IntN(n int) int
}

type randPicker struct{}

func (randPicker) IntN(n int) int { return rand.Intn(n) }

// DefaultPicker returns a picker backed by math/rand/v2's global source.
func DefaultPicker() Picker { return randPicker{} }

// StopWinTemplates are used when stop donations outweigh help donations.
var StopWinTemplates = []string{
	"🚨 ALERTA! O projeto '{project}' está sendo SABOTADO! 😈",
	"💀 Os haters estão ganhando! R$ {stop} para PARAR vs R$ {help} para AJUDAR!",
	"🔥 Guerra de vaquinhas! Os trolls estão na frente com {stop_pct}% das doações!",
	"😱 O projeto está sendo BOICOTADO! Mais gente quer ver falhar do que dar certo!",
	"🎭 Plot twist! A vaquinha virou uma guerra entre anjos e demônios! 😂",
	"⚔️ Batalha épica! R$ {diff} a mais para DESTRUIR o projeto!",
	"🎪 Circo dos horrores! Os haters estão dominando a vaquinha!",
	"🚫 STOP ganhando! O projeto está sendo cancelado pelos próprios doadores! 😅",
}

// StopDonationTemplates are used for a single paid stop donation.
var StopDonationTemplates = []string{
	"😈 {donor} acabou de DOAR PARA PARAR o projeto '{project}'! R$ {amount} para fazer o projeto falhar! Que maldade! 😂",
	"🚫 {donor} é um SABOTADOR! Doou R$ {amount} para PARAR o projeto '{project}'! A guerra das vaquinhas começou! ⚔️",
	"💀 {donor} é o VILÃO da história! R$ {amount} para destruir o projeto '{project}'! Que pessoa má! 😈",
	"🔥 {donor} acabou de lançar uma BOMBA! R$ {amount} para EXPLODIR o projeto '{project}'! Que zueira! 💣",
	"👹 {donor} é o DIABO em pessoa! Doou R$ {amount} para ACABAR com '{project}'! Que maldade! 😈",
	"⚡ {donor} lançou um RAIO para PARAR o projeto! R$ {amount} para destruir '{project}'! Que energia negativa! ⚡",
	"🎭 {donor} é o ANTI-HERÓI da vaquinha! R$ {amount} para sabotar '{project}'! Que drama! 🎪",
	"💥 {donor} acabou de DETONAR! R$ {amount} para EXPLODIR o projeto '{project}'! Que explosão! 🧨",
}

type helpBucket struct {
	below    decimal.Decimal
	template string
}

// helpBuckets are ordered by their upper bound; the last one catches everything else.
var helpBuckets = []helpBucket{
	{decimal.NewFromInt(1), "{donor} deu R$ {amount}, parabéns, agora você só precisa de mais R$ {remaining} pra ser relevante 😂"},
	{decimal.NewFromInt(5), "{donor} botou R$ {amount}, está querendo ser o herói da vaquinha 🤡"},
	{decimal.NewFromInt(10), "{donor} com R$ {amount} tá começando a ficar sério! 🔥"},
	{decimal.NewFromInt(25), "{donor} mandou R$ {amount}, agora sim tá ficando interessante! 💪"},
	{decimal.NewFromInt(50), "{donor} com R$ {amount} tá quase virando sócio! 🚀"},
}

const topHelpTemplate = "{donor} deu R$ {amount}, esse aí é o verdadeiro MVP! 👑"

func formatMoney(v decimal.Decimal) string {
	return v.StringFixed(2)
}

func pick(p Picker, pool []string) string {
	if p == nil {
		p = DefaultPicker()
	}
	return pool[p.IntN(len(pool))]
}

// HelpTrollMessage picks the message for a help donation by the share of the
// budget it covers. A non-positive budget falls into the top bucket.
func HelpTrollMessage(budget, amount decimal.Decimal, donorName string) string {
	template := topHelpTemplate
	if budget.IsPositive() {
		pct := amount.Div(budget).Mul(hundred)
		for _, b := range helpBuckets {
			if pct.LessThan(b.below) {
				template = b.template
				break
			}
		}
	}

	return strings.NewReplacer(
		"{donor}", donorName,
		"{amount}", formatMoney(amount),
		"{remaining}", formatMoney(budget.Sub(amount)),
	).Replace(template)
}

// StopTrollMessage picks a sabotage message for a stop donation.
func StopTrollMessage(p Picker, projectName, donorName string, amount decimal.Decimal) string {
	return strings.NewReplacer(
		"{donor}", donorName,
		"{amount}", formatMoney(amount),
		"{project}", projectName,
	).Replace(pick(p, StopDonationTemplates))
}

// DonationTrollMessage returns the message for a single donation, or nil when
// the donation is not paid yet.
func DonationTrollMessage(p Picker, project *domain.Project, donation *domain.Donation) *string {
	if donation.Status != domain.DonationPaid {
		return nil
	}
	var msg string
	if donation.DonationType == domain.DonationStop {
		msg = StopTrollMessage(p, project.Name, donation.DonorName, donation.Amount)
	} else {
		msg = HelpTrollMessage(project.Budget, donation.Amount, donation.DonorName)
	}
	return &msg
}

// StopWinMessage returns a random stop-win message, or nil when stop does not
// strictly outweigh help.
func StopWinMessage(p Picker, projectName string, stats domain.FundraisingStats) *string {
	if !stats.StopWins {
		return nil
	}
	msg := strings.NewReplacer(
		"{project}", projectName,
		"{help}", formatMoney(stats.HelpAmount),
		"{stop}", formatMoney(stats.StopAmount),
		"{diff}", formatMoney(stats.StopAmount.Sub(stats.HelpAmount)),
		"{stop_pct}", stats.StopPercentage.StringFixed(2),
	).Replace(pick(p, StopWinTemplates))
	return &msg
}
