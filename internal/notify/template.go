package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/ngocvh/licensewatch/internal/db"
)

var emailTmpl = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f9f9f9;">
    <div style="background-color: {{.HeaderColor}}; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0;">
      <h2>⚠️ Thông báo hết hạn bản quyền phần mềm</h2>
    </div>
    <div style="background-color: white; padding: 20px; border-radius: 0 0 5px 5px;">
      <p>Kính gửi: {{.DepartmentName}},</p>
      <p>Hệ thống nhắc nhở: Bản quyền/hợp đồng phần mềm <strong>{{.AssetName}}</strong> {{.StatusText}}.</p>
      <table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
        <tr><td style="padding: 10px; font-weight: bold;">Phần mềm:</td><td style="padding: 10px;"><strong>{{.AssetName}}</strong></td></tr>
        <tr><td style="padding: 10px; font-weight: bold;">Phòng ban:</td><td style="padding: 10px;">{{.DepartmentName}}</td></tr>
        <tr><td style="padding: 10px; font-weight: bold;">Ngày hết hạn:</td><td style="padding: 10px;"><strong>{{.ExpireDate}}</strong></td></tr>
        {{if .ContractNumber}}<tr><td style="padding: 10px; font-weight: bold;">Số hợp đồng:</td><td style="padding: 10px;">{{.ContractNumber}}</td></tr>{{end}}
        {{if .VendorName}}<tr><td style="padding: 10px; font-weight: bold;">Nhà cung cấp:</td><td style="padding: 10px;">{{.VendorName}}</td></tr>{{end}}
        {{if .ResponsibleUser}}<tr><td style="padding: 10px; font-weight: bold;">Người phụ trách:</td><td style="padding: 10px;">{{.ResponsibleUser}}</td></tr>{{end}}
      </table>
      <p>Vui lòng kiểm tra và thực hiện gia hạn kịp thời để đảm bảo hoạt động liên tục.</p>
      <a href="{{.DetailURL}}" style="display: inline-block; padding: 12px 24px; background-color: #1976d2; color: white; text-decoration: none; border-radius: 5px;">Xem chi tiết &amp; cập nhật</a>
      <div style="text-align: center; margin-top: 20px; font-size: 12px; color: #777;">
        <p>Email này được gửi tự động từ Hệ thống quản lý bản quyền phần mềm.</p>
        <p>Vui lòng không trả lời email này.</p>
      </div>
    </div>
  </div>
</body>
</html>
`))

type emailData struct {
	AssetName       string
	DepartmentName  string
	ExpireDate      string
	ContractNumber  string
	VendorName      string
	ResponsibleUser string
	StatusText      string
	HeaderColor     string
	DetailURL       string
}

// statusText phrases how close the asset is to expiry, day-granular.
func statusText(daysLeft int) string {
	switch {
	case daysLeft > 0:
		return fmt.Sprintf("sẽ hết hạn sau %d ngày", daysLeft)
	case daysLeft == 0:
		return "hết hạn hôm nay"
	default:
		return fmt.Sprintf("đã hết hạn %d ngày", -daysLeft)
	}
}

// headerColor mirrors the urgency bands: red past expiry, orange within a
// month, blue otherwise.
func headerColor(daysLeft int) string {
	switch {
	case daysLeft < 0:
		return "#d32f2f"
	case daysLeft <= 30:
		return "#f57c00"
	default:
		return "#1976d2"
	}
}

func renderEmail(asset *db.Asset, daysLeft int, frontendURL string) (subject, html string, err error) {
	st := statusText(daysLeft)
	subject = fmt.Sprintf("[Cảnh báo bản quyền] %s %s", asset.Name, st)

	data := emailData{
		AssetName:      asset.Name,
		DepartmentName: "Quý phòng ban",
		ExpireDate:     asset.ExpireDate.Format("02/01/2006"),
		StatusText:     st,
		HeaderColor:    headerColor(daysLeft),
		DetailURL:      fmt.Sprintf("%s/software-assets/%s", frontendURL, asset.ID),
	}
	if asset.Department != nil {
		data.DepartmentName = asset.Department.Name
	}
	if asset.ContractNumber != nil {
		data.ContractNumber = *asset.ContractNumber
	}
	if asset.VendorName != nil {
		data.VendorName = *asset.VendorName
	}
	if asset.ResponsibleUser != nil {
		data.ResponsibleUser = fmt.Sprintf("%s (%s)", asset.ResponsibleUser.FullName, asset.ResponsibleUser.Email)
	}

	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, data); err != nil {
		return "", "", err
	}

	return subject, buf.String(), nil
}
