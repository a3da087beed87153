package notify

const emailLayoutTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Title}}</title>
  <style>
    body {
      margin: 0;
      padding: 24px;
      background-color: #f3f4f6;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
      color: #111827;
      line-height: 1.5;
    }

    .container {
      max-width: 640px;
      margin: 0 auto;
      background: #ffffff;
      border-radius: 8px;
      border: 1px solid #e5e7eb;
      overflow: hidden;
    }

    .header {
      padding: 20px 24px;
      background: linear-gradient(135deg, #1f2937 0%, #f7931a 100%);
      color: #ffffff;
    }

    .headline {
      font-size: 20px;
      font-weight: 700;
      margin-bottom: 4px;
    }

    .subtitle {
      font-size: 14px;
      opacity: 0.9;
    }

    .section {
      padding: 16px 24px;
      border-top: 1px solid #f3f4f6;
    }

    .section-title {
      font-size: 11px;
      font-weight: 700;
      color: #6b7280;
      text-transform: uppercase;
      letter-spacing: 0.1em;
      margin-bottom: 12px;
    }

    .stats {
      width: 100%;
      font-size: 14px;
      border-collapse: collapse;
    }

    .stats td {
      padding: 4px 0;
    }

    .stats td.value {
      text-align: right;
      font-weight: 600;
    }

    .record-list {
      margin: 0;
      padding-left: 20px;
      font-size: 14px;
    }

    .record-list li {
      margin-bottom: 8px;
    }

    .tag {
      display: inline-block;
      padding: 2px 6px;
      font-size: 10px;
      font-weight: 600;
      border-radius: 3px;
      text-transform: uppercase;
      letter-spacing: 0.03em;
      margin-right: 4px;
      background: #e5e7eb;
      color: #374151;
    }

    .tag.bullish { background: #dcfce7; color: #166534; }
    .tag.bearish { background: #fee2e2; color: #991b1b; }
    .tag.failed { background: #fef3c7; color: #92400e; }

    .content-box {
      background: #f9fafb;
      border-left: 3px solid #f7931a;
      padding: 12px 16px;
      font-size: 13px;
      color: #374151;
      white-space: pre-wrap;
      border-radius: 0 4px 4px 0;
    }

    .cover {
      width: 100%;
      border-radius: 6px;
    }

    .footer {
      padding: 16px 24px;
      font-size: 12px;
      color: #9ca3af;
      text-align: center;
      background: #f9fafb;
      border-top: 1px solid #f3f4f6;
    }

    a {
      color: #0b3d91;
      text-decoration: none;
    }
  </style>
</head>
<body>
  <div class="container">
    {{if .Run}}{{template "run" .Run}}{{end}}
    {{if .Blog}}{{template "blog" .Blog}}{{end}}
    <div class="footer">
      Generated by the cryptobriefs worker
    </div>
  </div>
</body>
</html>`

const runBodyTemplate = `
    <div class="header">
      <div class="headline">Ingest run</div>
      <div class="subtitle">{{.StartedAt.Format "02 Jan 2006 15:04 MST"}}</div>
    </div>

    <div class="section">
      <div class="section-title">Summary</div>
      <table class="stats">
        <tr><td>Feed items</td><td class="value">{{.Feed.Fetched}} from {{.Feed.Feeds}} feeds</td></tr>
        <tr><td>Classified</td><td class="value">{{.Classified}}</td></tr>
        <tr><td>Already settled</td><td class="value">{{.Reused}}</td></tr>
        <tr><td>Inserted</td><td class="value">{{.Inserted}}</td></tr>
        <tr><td>Updated</td><td class="value">{{.Updated}}</td></tr>
        <tr><td>Failed writes</td><td class="value">{{.Failed}}</td></tr>
      </table>
    </div>

    {{if .Writes}}
    <div class="section">
      <div class="section-title">Records</div>
      <ul class="record-list">
        {{range .Writes}}
        <li>
          <span class="tag {{outcome .}}">{{outcome .}}</span>
          <span class="tag {{.Sentiment}}">{{.Sentiment}}</span>
          <a href="{{.Link}}" target="_blank" rel="noopener">{{.Title}}</a>
        </li>
        {{end}}
      </ul>
    </div>
    {{end}}

    {{if .Feed.Failures}}
    <div class="section">
      <div class="section-title">Feed errors</div>
      <ul class="record-list">
        {{range .Feed.Failures}}
        <li>{{.Error}}</li>
        {{end}}
      </ul>
    </div>
    {{end}}
`

const blogBodyTemplate = `
    <div class="header">
      <div class="headline">{{.Title}}</div>
      <div class="subtitle">Idea: {{.Idea}}</div>
    </div>

    {{with .Post}}
    {{if .ImageURL}}
    <div class="section">
      <img class="cover" src="{{.ImageURL}}" alt="cover" />
    </div>
    {{end}}

    <div class="section">
      <div class="section-title">Article</div>
      <div class="content-box">{{.Content}}</div>
    </div>

    <div class="section">
      <div class="section-title">Tags</div>
      {{.Tag}}
    </div>
    {{end}}
`
