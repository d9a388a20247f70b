package printing

const defaultBudgetTemplate = `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<title>Presupuesto {{.ClientName}}</title>
<style>
  body { font-family: "Helvetica Neue", Arial, sans-serif; font-size: 11pt; color: #222; }
  header { border-bottom: 2px solid #1f6f8b; padding-bottom: 8px; margin-bottom: 16px; }
  header h1 { margin: 0; font-size: 18pt; color: #1f6f8b; }
  header p { margin: 2px 0; font-size: 9pt; }
  .client td { padding: 2px 12px 2px 0; }
  table.lines { width: 100%; border-collapse: collapse; margin-top: 16px; }
  table.lines th { background: #1f6f8b; color: #fff; padding: 6px; text-align: left; }
  table.lines td { border-bottom: 1px solid #ddd; padding: 6px; }
  .num { text-align: right; }
  .totals { margin-top: 12px; width: 40%; margin-left: auto; }
  .totals td { padding: 4px; }
  .totals .grand td { font-weight: bold; border-top: 2px solid #222; }
  .notes, .bank { margin-top: 20px; font-size: 9pt; }
</style>
</head>
<body>
<header>
  <h1>{{.Clinic.Name}}</h1>
  {{with .Clinic.Address}}<p>{{.}}</p>{{end}}
  {{with .Clinic.Phone}}<p>Tel: {{.}}</p>{{end}}
</header>

<h2>PRESUPUESTO</h2>
<table class="client">
  <tr><td>Paciente:</td><td>{{title .ClientName}}</td></tr>
  <tr><td>Cédula:</td><td>{{upper .ClientCedula}}</td></tr>
  <tr><td>Fecha:</td><td>{{formatDate .Date}}</td></tr>
  {{with .ExpirationDate}}<tr><td>Válido hasta:</td><td>{{formatDate .}}</td></tr>{{end}}
</table>

<table class="lines">
  <thead>
    <tr><th>#</th><th>Tratamiento</th><th class="num">Cant.</th><th class="num">Precio</th><th class="num">Subtotal</th></tr>
  </thead>
  <tbody>
  {{range .Lines}}
    <tr>
      <td>{{.Number}}</td>
      <td>{{.Treatment}}</td>
      <td class="num">{{.Quantity}}</td>
      <td class="num">{{formatMoney .UnitPrice}}</td>
      <td class="num">{{formatMoney .Subtotal}}</td>
    </tr>
  {{end}}
  </tbody>
</table>

<table class="totals">
  <tr><td>Subtotal</td><td class="num">{{formatMoney .Gross}}</td></tr>
  {{if .Discount.IsPositive}}<tr><td>Descuento</td><td class="num">-{{formatMoney .Discount}}</td></tr>{{end}}
  <tr class="grand"><td>Total</td><td class="num">{{formatMoney .Total}}</td></tr>
</table>

{{with .Notes}}<div class="notes"><strong>Observaciones:</strong><br>{{nl2br .}}</div>{{end}}

{{if .Clinic.HasBankDetails}}
<div class="bank">
  <strong>Datos para transferencia</strong><br>
  {{with .Clinic.BankName}}Banco: {{.}}<br>{{end}}
  {{with .Clinic.BankAccount}}Cuenta: {{.}}<br>{{end}}
  {{with .Clinic.BankAccountHolder}}Titular: {{.}}{{end}}
</div>
{{end}}
</body>
</html>
`
