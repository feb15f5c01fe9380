package api

const docsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="referrer" content="same-origin" />
  <meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no" />
  <title>Cortex Shell API</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
</head>
<body style="height: 100vh; margin: 0; position: relative;">
  <a href="/docs/events" style="
    position: fixed;
    top: 12px;
    right: 16px;
    z-index: 9999;
    background: #161b22;
    border: 1px solid #30363d;
    border-radius: 6px;
    color: #58a6ff;
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
    font-size: 12px;
    font-weight: 500;
    padding: 5px 12px;
    text-decoration: none;
  ">Event Stream Docs</a>
  <elements-api
    apiDescriptionUrl="/openapi.json"
    router="hash"
    layout="sidebar"
    tryItCredentialsPolicy="same-origin"
    darkMode
  />
</body>
</html>`

const eventsDocsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Event Stream - Cortex Shell</title>
  <style>
    body {
      margin: 0;
      padding: 32px 48px;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
      font-size: 14px;
      line-height: 1.65;
      background: #0d1117;
      color: #c9d1d9;
      max-width: 860px;
    }
    a { color: #58a6ff; text-decoration: none; }
    h1 { font-size: 22px; color: #f0f6fc; }
    h2 { font-size: 16px; color: #f0f6fc; margin-top: 32px; }
    code, pre {
      font-family: ui-monospace, SFMono-Regular, Menlo, monospace;
      background: #161b22;
      border: 1px solid #30363d;
      border-radius: 6px;
    }
    code { padding: 1px 5px; }
    pre { padding: 12px 16px; overflow-x: auto; }
    table { border-collapse: collapse; }
    td, th { border: 1px solid #30363d; padding: 6px 12px; text-align: left; }
  </style>
</head>
<body>
  <p><a href="/docs">&larr; REST API</a></p>
  <h1>Event Stream</h1>
  <p>The shell pushes state changes to the navigation bar over a websocket at
  <code>GET /api/v1/events</code>. Each text frame is one JSON object:</p>
  <pre>{"kind": "tabs-changed", "payload": [...]}</pre>
  <p>On connect the latest event of every kind is sent first, so a new client
  starts from the current tab list. Frames sent by the client are ignored.
  The same events are available as Server-Sent Events at
  <code>GET /api/v1/events/sse</code>, optionally filtered with
  <code>?kinds=tabs-changed</code>.</p>
  <p>Every <code>/api/v1</code> request must come from the shell's own origin
  (or carry no <code>Origin</code> header) and present the per-launch token,
  either in the <code>X-Cortex-Token</code> header or as
  <code>?token=</code>. The navigation bar receives the token in its URL
  fragment.</p>

  <h2>Kinds</h2>
  <table>
    <tr><th>kind</th><th>payload</th></tr>
    <tr><td><code>tabs-changed</code></td><td>Ordered array of <code>{"id", "tab_id", "url", "active"}</code>. Sent after every tab mutation and URL change.</td></tr>
    <tr><td><code>fullscreen-changed</code></td><td><code>true</code> or <code>false</code>.</td></tr>
  </table>

  <h2>Example</h2>
  <pre>const ws = new WebSocket("ws://" + location.host + "/api/v1/events?token=" + token);
ws.onmessage = (m) => {
  const evt = JSON.parse(m.data);
  if (evt.kind === "tabs-changed") render(evt.payload);
};</pre>
</body>
</html>`
