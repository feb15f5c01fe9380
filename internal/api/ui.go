package api

// navBarHTML is the navigation bar loaded in the shell's UI tab. It only
// talks to the shell through the JSON API and the event stream, using the
// per-launch token passed in the URL fragment (#token=...).
const navBarHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Cortex</title>
  <style>
    * { box-sizing: border-box; }
    body {
      margin: 0;
      height: 96px;
      overflow: hidden;
      background: #1f2329;
      color: #e6e6e6;
      font: 13px -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
      user-select: none;
    }
    #tabs { display: flex; gap: 2px; height: 44px; padding: 6px 8px 0; }
    .tab {
      display: flex; align-items: center; gap: 6px;
      max-width: 220px; min-width: 80px; padding: 0 10px;
      background: #2b3038; border-radius: 6px 6px 0 0; cursor: default;
    }
    .tab.active { background: #3a404a; }
    .tab span { flex: 1; overflow: hidden; white-space: nowrap; text-overflow: ellipsis; }
    .tab button, #new { background: none; border: 0; color: inherit; cursor: pointer; }
    #bar { display: flex; gap: 6px; align-items: center; height: 52px; padding: 0 8px; background: #3a404a; }
    #bar button { width: 32px; height: 32px; border: 0; border-radius: 4px; background: #2b3038; color: inherit; cursor: pointer; }
    #address { flex: 1; height: 32px; padding: 0 10px; border: 0; border-radius: 4px; background: #1f2329; color: inherit; }
  </style>
</head>
<body>
  <div id="tabs"><button id="new" title="New tab">+</button></div>
  <div id="bar">
    <button id="back" title="Back">&larr;</button>
    <button id="forward" title="Forward">&rarr;</button>
    <button id="reload" title="Reload">&#8635;</button>
    <input id="address" spellcheck="false" placeholder="Search or enter address" />
    <button id="shield" title="Refresh filter lists">&#9960;</button>
  </div>
  <script>
    const token = new URLSearchParams(location.hash.slice(1)).get("token") || "";
    const call = (method, path, body) => {
      const headers = {"X-Cortex-Token": token};
      if (body) headers["Content-Type"] = "application/json";
      return fetch(path, {method, headers, body: body ? JSON.stringify(body) : undefined});
    };
    const tabsEl = document.getElementById("tabs");
    const newBtn = document.getElementById("new");
    const address = document.getElementById("address");

    function render(tabs) {
      tabsEl.querySelectorAll(".tab").forEach((el) => el.remove());
      for (const t of tabs) {
        const el = document.createElement("div");
        el.className = "tab" + (t.active ? " active" : "");
        const label = document.createElement("span");
        label.textContent = t.url || "New Tab";
        const close = document.createElement("button");
        close.textContent = "×";
        close.onclick = (e) => { e.stopPropagation(); call("DELETE", "/api/v1/tabs/by-id/" + t.tab_id); };
        el.onclick = () => call("POST", "/api/v1/tabs/by-id/" + t.tab_id + "/activate");
        el.append(label, close);
        tabsEl.insertBefore(el, newBtn);
        if (t.active && document.activeElement !== address) address.value = t.url;
      }
    }

    newBtn.onclick = () => call("POST", "/api/v1/tabs", {});
    document.getElementById("back").onclick = () => call("POST", "/api/v1/back");
    document.getElementById("forward").onclick = () => call("POST", "/api/v1/forward");
    document.getElementById("reload").onclick = () => call("POST", "/api/v1/reload");
    document.getElementById("shield").onclick = () => call("POST", "/api/v1/filters/refresh");
    address.addEventListener("keydown", (e) => {
      if (e.key === "Enter") { call("POST", "/api/v1/navigate", {input: address.value}); address.blur(); }
    });
    addEventListener("keydown", (e) => {
      if (e.key === "F11") { e.preventDefault(); call("POST", "/api/v1/fullscreen/toggle"); }
    });

    function connect() {
      const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/api/v1/events?token=" + encodeURIComponent(token));
      ws.onmessage = (m) => {
        const evt = JSON.parse(m.data);
        if (evt.kind === "tabs-changed") render(evt.payload);
        if (evt.kind === "fullscreen-changed") document.body.hidden = evt.payload;
      };
      ws.onclose = () => setTimeout(connect, 1000);
    }
    connect();
  </script>
</body>
</html>`
