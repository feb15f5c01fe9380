package cdpview

// Messages posted by bridgeScript through the bridgeBinding binding.
const (
	bridgeBinding = "__cortexShell"
	bridgeToggle  = "toggle"
	bridgeEnter   = "enter"
	bridgeLeave   = "leave"

	// bridgeWorld is the isolated world bridgeScript and the binding live
	// in. Page scripts cannot reach it.
	bridgeWorld = "cortex-bridge"
)

// bridgeScript runs in the bridge world of every document of a content tab.
// It forwards the F11 hotkey and HTML fullscreen transitions to the shell.
// Synthetic key events are ignored.
const bridgeScript = `(() => {
  const send = globalThis.__cortexShell;
  if (typeof send !== "function" || globalThis.__cortexBridge) return;
  globalThis.__cortexBridge = true;
  addEventListener("keydown", (e) => {
    if (e.isTrusted && e.key === "F11" && !e.repeat) {
      e.preventDefault();
      send("toggle");
    }
  }, true);
  document.addEventListener("fullscreenchange", () => {
    send(document.fullscreenElement ? "enter" : "leave");
  });
})();`

// fullscreenCheck is evaluated in the bridge world to confirm an enter
// message before the shell acts on it.
const fullscreenCheck = `!!document.fullscreenElement`
