package gethchain

// schoolABI covers the subset of the school contract the app talks to.
const schoolABI = `[
	{"type":"function","name":"hasRole","stateMutability":"view","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"grantRole","stateMutability":"nonpayable","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[]},
	{"type":"function","name":"revokeRole","stateMutability":"nonpayable","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[]},
	{"type":"function","name":"renounceRole","stateMutability":"nonpayable","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[]},
	{"type":"function","name":"registerStudent","stateMutability":"nonpayable","inputs":[{"name":"student","type":"address"},{"name":"fullName","type":"string"},{"name":"programId","type":"uint256"},{"name":"term","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"registerStudents","stateMutability":"nonpayable","inputs":[{"name":"students","type":"address[]"},{"name":"fullNames","type":"string[]"},{"name":"programIds","type":"uint256[]"},{"name":"terms","type":"uint256[]"}],"outputs":[]},
	{"type":"function","name":"markAttendance","stateMutability":"nonpayable","inputs":[{"name":"student","type":"address"},{"name":"sessionId","type":"string"}],"outputs":[]},
	{"type":"function","name":"updateReputation","stateMutability":"nonpayable","inputs":[{"name":"student","type":"address"},{"name":"points","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getStudent","stateMutability":"view","inputs":[{"name":"student","type":"address"}],"outputs":[{"name":"fullName","type":"string"},{"name":"programId","type":"uint256"},{"name":"term","type":"uint256"},{"name":"active","type":"bool"},{"name":"reputation","type":"uint256"}]},
	{"type":"function","name":"attendanceOf","stateMutability":"view","inputs":[{"name":"student","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"tuitionStatus","stateMutability":"view","inputs":[{"name":"student","type":"address"},{"name":"term","type":"uint256"}],"outputs":[{"name":"paid","type":"bool"},{"name":"dueDate","type":"uint256"},{"name":"amountDue","type":"uint256"}]},
	{"type":"function","name":"tuitionFee","stateMutability":"view","inputs":[{"name":"term","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"treasuryBalance","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"paused","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"pause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"unpause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"},{"name":"to","type":"address"}],"outputs":[]}
]`
