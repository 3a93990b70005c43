package usecase

import (
	"fmt"
	"strings"
)

// 注文確定メールのHTML。金額はここ（表示時）で初めて2桁に丸まった文字列を使う。

func buyerConfirmationHTML(o OrderOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>注文 %s</h1>", o.OrderCode)
	fmt.Fprintf(&b, "<p>注文日時: %s</p>", o.OrderDate.Format("2006-01-02 15:04"))

	for _, g := range o.Groups {
		fmt.Fprintf(&b, "<h2>%s</h2><table>", g.SupplierName)
		b.WriteString("<tr><th>商品</th><th>単価</th><th>数量</th></tr>")
		for _, it := range g.Items {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%d</td></tr>", it.Name, it.Price, it.Quantity)
		}
		fmt.Fprintf(&b, "</table><p>小計: %s</p>", g.SupplierTotal)
	}

	fmt.Fprintf(&b, "<p>商品合計: %s</p>", o.Subtotal)
	fmt.Fprintf(&b, "<p>送料: %s</p>", o.ShippingCost)
	if o.CouponCode != "" {
		fmt.Fprintf(&b, "<p>クーポン: %s</p>", o.CouponCode)
	}
	fmt.Fprintf(&b, "<p><strong>合計: %s</strong></p>", o.TotalAmount)
	return b.String()
}

func supplierOrderHTML(o OrderOutput, g OrderGroupOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>注文 %s</h1>", o.OrderCode)
	fmt.Fprintf(&b, "<p>注文日時: %s</p><table>", o.OrderDate.Format("2006-01-02 15:04"))
	b.WriteString("<tr><th>商品</th><th>単価</th><th>数量</th></tr>")
	for _, it := range g.Items {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%d</td></tr>", it.Name, it.Price, it.Quantity)
	}
	fmt.Fprintf(&b, "</table><p>小計: %s</p>", g.SupplierTotal)
	return b.String()
}
