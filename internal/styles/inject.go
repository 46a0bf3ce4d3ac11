package styles

import (
	"encoding/json"
	"fmt"
)

// InjectModule returns a script that installs css as a <style> element keyed
// by id. Running it again replaces the previous element, so reloaded bundles
// do not stack duplicate styles.
func InjectModule(id, css string) string {
	idJSON, _ := json.Marshal(id)
	cssJSON, _ := json.Marshal(css)

	return fmt.Sprintf(`(function() {
  var id = %s;
  var css = %s;
  if (typeof document === "undefined") return;
  var el = document.querySelector('style[data-sitepack="' + id + '"]');
  if (!el) {
    el = document.createElement("style");
    el.setAttribute("data-sitepack", id);
    document.head.appendChild(el);
  }
  el.textContent = css;
})();
`, idJSON, cssJSON)
}
