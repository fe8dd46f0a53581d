package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/money"
)

// Customer-facing WhatsApp texts. Amounts are rendered with money.Format.

const (
	msgVoiceApology = "عذراً، حصل خطأ في معالجة الرسالة الصوتية. ممكن تعيد إرسالها أو تكتب رسالة نصية؟ 🙏"

	msgOrderClarification = `عذراً، لم أتمكن من فهم طلبك بشكل كامل 🤔

ممكن توضح لي:
1️⃣ المنتجات اللي تبيها
2️⃣ الكمية المطلوبة
3️⃣ عنوان التوصيل

مثال: "أبي 2 عطر العود، التوصيل للرياض حي النرجس"`

	msgOrderFailed = "عذراً، حدث خطأ أثناء إنشاء طلبك 😔 فريقنا سيتواصل معك قريباً لإكمال الطلب. 🙏"

	msgReplyFailed = "عذراً، حدث خطأ مؤقت. ممكن تعيد إرسال رسالتك بعد قليل؟ 🙏"

	// defaultShippingAddress is sent to the platform when the customer gave none.
	defaultShippingAddress = "سيتم التواصل لتحديد العنوان"
	defaultCity            = "الرياض"

	trackingFallback = "غير متوفر"
)

// voiceAckMessage confirms what was understood from a voice note.
func voiceAckMessage(transcript string) string {
	return fmt.Sprintf("🎤 فهمت رسالتك: «%s»", transcript)
}

// arabicDate formats a date as day/month/year.
func arabicDate(t time.Time) string { return t.Format("02/01/2006") }

// discountNotice describes the code that priced the order.
type discountNotice struct {
	Code           string
	OriginalAmount int64
	DiscountAmount int64
}

func (d *discountNotice) section() string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("\n💳 *كود خصم:* %s\n💵 *السعر الأصلي:* %s ريال\n🎉 *الخصم:* -%s ريال\n",
		d.Code, money.Format(d.OriginalAmount), money.Format(d.DiscountAmount))
}

// orderConfirmationMessage is sent after a non-gift order is created.
func orderConfirmationMessage(orderNumber string, items []domain.OrderItem, total int64, paymentURL string, d *discountNotice) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("• %s × %d = %s ريال", it.Name, it.Quantity, money.Format(it.LineTotal())))
	}
	return fmt.Sprintf(`✅ *تم إنشاء طلبك بنجاح!*

📦 *رقم الطلب:* %s

*المنتجات:*
%s%s
💰 *الإجمالي:* %s ريال

🔗 *لإتمام الطلب، اضغط على الرابط التالي للدفع:*
%s

📱 سنرسل لك تحديثات عن حالة طلبك عبر الواتساب

شكراً لثقتك بنا! 🌟`, orderNumber, strings.Join(lines, "\n"), d.section(), money.Format(total), paymentURL)
}

// giftConfirmationMessage is sent after a gift order is created.
func giftConfirmationMessage(orderNumber, recipient string, items []domain.OrderItem, total int64, paymentURL string, d *discountNotice) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("• %s × %d", it.Name, it.Quantity))
	}
	return fmt.Sprintf(`🎁 *تم إنشاء طلب الهدية بنجاح!*

📦 *رقم الطلب:* %s
👤 *المستلم:* %s

*المنتجات:*
%s%s
💰 *الإجمالي:* %s ريال

🔗 *لإتمام الطلب، اضغط على الرابط التالي للدفع:*
%s

🎉 سنقوم بتوصيل الهدية مع بطاقة تهنئة خاصة

شكراً لاختيارك هديتك معنا! 💝`, orderNumber, recipient, strings.Join(lines, "\n"), d.section(), money.Format(total), paymentURL)
}

// invalidCodeNotice is appended when a code in the message was rejected and
// the order went through at full price.
func invalidCodeNotice(code, reason string) string {
	return fmt.Sprintf("\n\n⚠️ لم يتم تطبيق الكود %s: %s", code, reason)
}

// welcomeDiscountMessage is sent with the post-purchase code.
func welcomeDiscountMessage(name, code string, pct int64, expiresAt *time.Time) string {
	expiry := ""
	if expiresAt != nil {
		expiry = "\nصالح حتى: " + arabicDate(*expiresAt)
	}
	return fmt.Sprintf(`مرحباً %s! 🎉

شكراً لك على طلبك الأول! 💙

نقدم لك كود خصم خاص:

🎁 الكود: *%s*
💰 الخصم: %d%%%s

استخدم هذا الكود في طلبك القادم واحصل على خصم فوري!

نتطلع لخدمتك مرة أخرى! 🙏`, name, code, pct, expiry)
}

// referralRewardMessage is sent when a referrer reaches the milestone.
func referralRewardMessage(name, code string, expiresAt time.Time) string {
	return fmt.Sprintf(`مبروك %s! 🎉🎊

لقد وصلت إلى %d إحالات ناجحة! 🌟

مكافأتك الخاصة:

🎁 كود الخصم: *%s*
💰 خصم: %d%%
📅 صالح حتى: %s

شكراً لك على ثقتك ودعمك! 💙

استخدم الكود في طلبك القادم واستمتع بالخصم! 🛍️`, name, referralMilestone, code, referralRewardPercent, arabicDate(expiresAt))
}

// ReferralInviteMessage is the text a referrer forwards to friends.
func ReferralInviteMessage(name, code, storeURL string) string {
	return fmt.Sprintf(`مرحباً! 👋

صديقك %s يدعوك للتسوق معنا! 🛍️

استخدم كود الإحالة الخاص به:
🎁 *%s*

ستحصل على خصم خاص في طلبك الأول! 💰

للطلب، تواصل معنا عبر الواتساب:
%s

نتطلع لخدمتك! 🙏`, name, code, storeURL)
}

// referralProgressMessage encourages a referrer on the way to the milestone.
func referralProgressMessage(name string, count, remaining int) string {
	emoji := "👏"
	if count >= 3 {
		emoji = "🔥"
	}
	return fmt.Sprintf(`رائع %s! %s

لديك الآن %d إحالة ناجحة! 

باقي %d إحالة فقط للحصول على خصم %d%%! 🎁

شارك كود الإحالة الخاص بك مع أصدقائك وعائلتك! 💙`, name, emoji, count, remaining, referralRewardPercent)
}

// cartReminderMessage lists the abandoned items with the recovery offer.
func cartReminderMessage(name string, items []domain.OrderItem, total int64, code string) string {
	greeting := "مرحباً! 👋"
	if name != "" {
		greeting = fmt.Sprintf("مرحباً %s! 👋", name)
	}
	var list strings.Builder
	for _, it := range items {
		fmt.Fprintf(&list, "\n• %s (%dx) - %s ريال", it.Name, it.Quantity, money.Format(it.Price))
	}
	discount := money.Percent(total, cartRecoveryPercent)
	return fmt.Sprintf(`%s

لاحظنا أنك كنت مهتماً بهذه المنتجات:
%s

💰 *الإجمالي:* %s ريال

🎁 *عرض خاص لك!*
استخدم كود الخصم: *%s*
واحصل على خصم %d%% (%s ريال)

💵 *السعر بعد الخصم:* %s ريال فقط!

⏰ *العرض صالح لمدة %d أيام فقط*

هل تريد إكمال طلبك الآن؟ فقط أرسل لي "أريد الطلب" مع كود الخصم وسأساعدك! 😊`,
		greeting, list.String(), money.Format(total), code, cartRecoveryPercent,
		money.Format(discount), money.Format(total-discount), cartRecoveryDays)
}

// defaultTemplates are the built-in order-status notifications.
var defaultTemplates = map[string]string{
	domain.NotifyPending: `مرحباً {{customerName}}! 🎉

شكراً لطلبك من {{storeName}}

📦 *تفاصيل الطلب:*
رقم الطلب: #{{orderNumber}}
الإجمالي: {{total}} ريال

سنقوم بمراجعة طلبك والتأكيد عليه قريباً.

شكراً لثقتك بنا! 💙`,

	domain.NotifyConfirmed: `مرحباً {{customerName}}! ✅

تم تأكيد طلبك من {{storeName}}

📦 *تفاصيل الطلب:*
رقم الطلب: #{{orderNumber}}
الإجمالي: {{total}} ريال

سنبدأ بتجهيز طلبك الآن!

شكراً لثقتك بنا! 💙`,

	domain.NotifyShipped: `مرحباً {{customerName}}! 🚚

طلبك في الطريق إليك!

📦 *تفاصيل الشحن:*
رقم الطلب: #{{orderNumber}}
رقم التتبع: {{trackingNumber}}

سيصلك الطلب خلال 2-3 أيام عمل.

شكراً لثقتك بنا! 💙`,

	domain.NotifyDelivered: `مرحباً {{customerName}}! 🎁

تم توصيل طلبك بنجاح!

📦 رقم الطلب: #{{orderNumber}}

نتمنى أن تكون راضياً عن منتجاتنا!
نسعد بتقييمك لتجربتك معنا 🌟

شكراً لثقتك بنا! 💙`,

	domain.NotifyCancelled: `مرحباً {{customerName}}

تم إلغاء طلبك من {{storeName}}

📦 رقم الطلب: #{{orderNumber}}

إذا كان هناك أي استفسار، نحن هنا لمساعدتك!

نتطلع لخدمتك قريباً 💙`,
}
