package notify

const emailTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Arial, sans-serif; background-color: #f5f5f5; margin: 0; padding: 20px; }
  .container { max-width: 800px; margin: 0 auto; background-color: #ffffff; border-radius: 10px; overflow: hidden; }
  .header { background-color: #667eea; color: #ffffff; padding: 30px; text-align: center; }
  .content { padding: 30px; }
  .alert { background-color: #fff3cd; border-left: 5px solid #ff6b6b; padding: 20px; margin: 20px 0; border-radius: 5px; }
  .summary { background-color: #f8f9fa; border-left: 4px solid #667eea; padding: 20px; margin: 20px 0; border-radius: 5px; }
  table { border-collapse: collapse; width: 100%; margin: 20px 0; background-color: #ffffff; }
  th, td { padding: 12px; text-align: left; border-bottom: 1px solid #e0e0e0; }
  th { background-color: #667eea; color: #ffffff; }
  .alert th { background-color: #d32f2f; }
  .num { text-align: right; }
  .buy { color: #4caf50; font-weight: bold; }
  .sell { color: #f44336; font-weight: bold; }
  .total-row { font-weight: bold; background-color: #f0f0f0; }
  .footer { background-color: #f8f9fa; padding: 20px; text-align: center; color: #666666; font-size: 13px; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Daily Bulk &amp; Block Deals Report</h1>
    <p>Generated on: {{.GeneratedAt}}</p>
  </div>
  <div class="content">
{{- if .Matches}}
    <div class="alert">
      <h2>Watchlist Alert: {{len .Matches}} match(es)</h2>
      <p>Monitored investors made the following trades:</p>
      <table>
        <thead>
          <tr><th>Investor</th><th>Stock</th><th>Action</th><th class="num">Quantity</th><th class="num">Price</th><th>Type</th></tr>
        </thead>
        <tbody>
{{- range .Matches}}
          <tr>
            <td><strong>{{.Investor}}</strong>{{with .Entry.Category}}<br><small>{{.}}</small>{{end}}</td>
            <td>{{.Deal.Symbol}}{{with .Deal.SecurityName}}<br><small>{{clip . 40}}</small>{{end}}</td>
            <td class="{{if isBuy .Deal.Action}}buy{{else}}sell{{end}}">{{.Deal.Action}}</td>
            <td class="num">{{qty .Deal.Quantity}}</td>
            <td class="num">{{price .Deal.Price}}</td>
            <td>{{.Deal.Source}} {{.Deal.Category}}</td>
          </tr>
{{- end}}
        </tbody>
      </table>
    </div>
{{- else}}
    <p>No watchlist activity today.</p>
{{- end}}
    <div class="summary">
      <h2>Total Deals Today: {{comma .Total}}</h2>
    </div>
    <table>
      <thead>
        <tr><th>Exchange</th><th>Deal Type</th><th class="num">Count</th></tr>
      </thead>
      <tbody>
{{- range .Summary}}
        <tr><td><strong>{{.Feed.Source}}</strong></td><td>{{.Feed.Category}} Deals</td><td class="num">{{comma .Count}}</td></tr>
{{- end}}
        <tr class="total-row"><td colspan="2">TOTAL</td><td class="num">{{comma .Total}}</td></tr>
      </tbody>
    </table>
{{- if .Attached}}
    <p>CSV files are attached to this email for your reference.</p>
{{- end}}
  </div>
  <div class="footer">
    <p><strong>Bulk Deal Tracker</strong></p>
  </div>
</div>
</body>
</html>
`
