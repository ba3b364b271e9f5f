package pagedom

// bindingName is the Runtime binding used for in-page event callbacks.
const bindingName = "__adcover_binding"

const (
	jsRoot      = `() => document.documentElement`
	jsCreate    = `(tag) => document.createElement(tag)`
	jsPrepend   = `(c) => { this.insertBefore(c, this.firstChild) }`
	jsAppend    = `(c) => { this.appendChild(c) }`
	jsSetAttr   = `(n, v) => { this.setAttribute(n, v) }`
	jsDelAttr   = `(n) => { this.removeAttribute(n) }`
	jsSetCSS    = `(p, v) => { this.style.setProperty(p, v) }`
	jsConnected = `() => this.isConnected`
	jsPosition  = `() => getComputedStyle(this).position`

	jsRect = `() => {
	const r = this.getBoundingClientRect();
	return {x: r.x, y: r.y, width: r.width, height: r.height};
}`

	// Listener forwards the event to Go through the binding. preventDefault
	// runs in the page because the Go side answers asynchronously.
	jsListen = `(event, token, prevent) => {
	this.addEventListener(event, (e) => {
		if (prevent) e.preventDefault();
		window.` + bindingName + `(JSON.stringify({token: token}));
	});
}`

	jsXPath = `() => {
	const parts = [];
	let node = this;
	while (node && node.nodeType === 1) {
		const tag = node.tagName.toLowerCase();
		let idx = 0, total = 0;
		if (node.parentNode) {
			for (const sib of node.parentNode.children) {
				if (sib.tagName === node.tagName) {
					total++;
					if (sib === node) idx = total;
				}
			}
		}
		parts.unshift(total > 1 ? tag + '[' + idx + ']' : tag);
		node = node.parentNode;
	}
	return '/' + parts.join('/');
}`
)
