package order

import (
	"fmt"
	"strings"

	"github.com/sandevgo/tuskagent/internal/core"
)

// replies holds the deterministic texts the engine sends instead of model
// output.
type replies struct {
	fieldLabels      map[string]string
	askFields        string
	askConfirm       string
	confirmed        string
	deliveryFallback string
	persistFailed    string
	generic          string
	summaryLabels    [5]string
}

var arabicReplies = replies{
	fieldLabels: map[string]string{
		core.FieldName:    "الاسم",
		core.FieldPhone:   "رقم الموبايل",
		core.FieldAddress: "العنوان بالتفصيل",
		core.FieldCity:    "المحافظة",
		core.FieldProduct: "المنتج المطلوب",
	},
	askFields:        "أهلاً بيك! عشان أقدر أسجل طلبك محتاج منك: %s.",
	askConfirm:       "تمام، ده ملخص طلبك:\n%s\nتحب أأكد الطلب؟",
	confirmed:        "تم تأكيد طلبك بنجاح ✅\nرقم الطلب: %s\nميعاد التوصيل المتوقع: %s\nشكراً لثقتك!",
	deliveryFallback: "من 3 إلى 5 أيام عمل",
	persistFailed:    "عذراً، حصلت مشكلة وإحنا بنسجل طلبك. من فضلك ابعت \"تأكيد\" تاني بعد شوية.",
	generic:          "عذراً، حصلت مشكلة مؤقتة. ممكن تبعت رسالتك تاني؟",
	summaryLabels:    [5]string{"المنتجات", "الاسم", "الموبايل", "العنوان", "المحافظة"},
}

var englishReplies = replies{
	fieldLabels: map[string]string{
		core.FieldName:    "your name",
		core.FieldPhone:   "your mobile number",
		core.FieldAddress: "your full address",
		core.FieldCity:    "your city",
		core.FieldProduct: "the product you want",
	},
	askFields:        "Welcome! To place your order I still need %s.",
	askConfirm:       "Here is your order summary:\n%s\nShall I confirm it?",
	confirmed:        "Your order is confirmed ✅\nOrder number: %s\nEstimated delivery: %s\nThank you for shopping with us!",
	deliveryFallback: "within 3 to 5 business days",
	persistFailed:    "Sorry, something went wrong while saving your order. Please send \"confirm\" again in a moment.",
	generic:          "Sorry, something went wrong on our side. Could you send your message again?",
	summaryLabels:    [5]string{"Items", "Name", "Mobile", "Address", "City"},
}

func repliesFor(language string) replies {
	if language == "" || strings.Contains(strings.ToLower(language), "arabic") {
		return arabicReplies
	}
	return englishReplies
}

func (r replies) AskFields(missing []string) string {
	labels := make([]string, 0, len(missing))
	for _, f := range missing {
		if l, ok := r.fieldLabels[f]; ok {
			labels = append(labels, l)
		}
	}
	return fmt.Sprintf(r.askFields, strings.Join(labels, "، "))
}

func (r replies) AskConfirm(d *core.OrderDraft) string {
	return fmt.Sprintf(r.askConfirm, r.summary(d))
}

func (r replies) Confirmed(orderNumber, delivery string) string {
	if strings.TrimSpace(delivery) == "" {
		delivery = r.deliveryFallback
	}
	return fmt.Sprintf(r.confirmed, orderNumber, delivery)
}

func (r replies) summary(d *core.OrderDraft) string {
	items := make([]string, 0, len(d.Items))
	for _, it := range d.Items {
		parts := []string{it.Product}
		if it.Size != "" {
			parts = append(parts, it.Size)
		}
		if it.Color != "" {
			parts = append(parts, it.Color)
		}
		items = append(items, fmt.Sprintf("%s × %d", strings.Join(parts, " / "), max(it.Quantity, 1)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "- %s: %s\n", r.summaryLabels[0], strings.Join(items, "، "))
	fmt.Fprintf(&sb, "- %s: %s\n", r.summaryLabels[1], d.CustomerName)
	fmt.Fprintf(&sb, "- %s: %s\n", r.summaryLabels[2], d.CustomerPhone)
	fmt.Fprintf(&sb, "- %s: %s\n", r.summaryLabels[3], d.CustomerAddress)
	fmt.Fprintf(&sb, "- %s: %s", r.summaryLabels[4], d.City)
	return sb.String()
}
